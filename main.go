/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>

*/
package main

import "github.com/Scholarly-RC/client-deadline-records-backend-sub000/cmd"

func main() {
	cmd.Execute()
}

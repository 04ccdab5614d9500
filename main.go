/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>

*/
// @title           Contract Generator API
// @version         1.0
// @description     Quick contract generator with HTML preview, PDF export and email delivery

// @contact.name   API Support
// @contact.email  support@example.com

// @host      localhost:8080
// @BasePath  /api/v1
package main

import "github.com/HPNChanel/contract-generator/cmd"

func main() {
	cmd.Execute()
}

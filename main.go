package main

import "ResumeSection-backend/internal/cmd"

func main() {
	cmd.Execute()
}

package main

import (
	_ "github.com/joho/godotenv/autoload" // Autoload .env file.

	"github.com/ecobox-ge/ecobox-api/cmd/app"
)

// @contact.name   EcoBox Georgia
// @contact.url    https://ecobox.ge
//
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Bearer token
func main() {
	if err := app.Start(); err != nil {
		panic(err)
	}
}

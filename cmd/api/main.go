package main

import "unistay/internal/app"

// @title           UniStay API
// @version         1.0
// @description     Student housing: listings, interest requests, appointments and payments.
// @BasePath        /api
// @securityDefinitions.apikey BearerAuth
// @in              header
// @name            Authorization
func main() {
	app.Run()
}

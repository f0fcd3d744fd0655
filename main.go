package main

import (
	"context"
	"time"

	"github.com/K-Santhoshkumar/GS/internal/app"
)

// main boots the otp service and shuts it down gracefully on SIGINT or SIGTERM.
func main() {
	application := app.New()    // Initialize the application
	wait := application.Start() // Start the application and wait for the termination signal
	<-wait                      // Wait for the application to receive a termination signal
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	application.Stop(ctx) // Stop the application gracefully
}

package utils

import (
	"context"
	"fmt"

	"aiacard/config"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"google.golang.org/api/option"
)

var FCMClient *messaging.Client

// FirebaseInit initializes the Firebase App and Messaging client. Without
// FIREBASE_CREDENTIALS_PATH it leaves FCMClient nil.
func FirebaseInit(ctx context.Context) error {
	path := config.AppConfig.FirebaseCredentialsPath
	if path == "" {
		GetLogger().Info("firebase: no credentials configured, push notifications disabled")
		return nil
	}

	app, err := firebase.NewApp(ctx, nil, option.WithCredentialsFile(path))
	if err != nil {
		return fmt.Errorf("firebase: error initializing app: %w", err)
	}

	client, err := app.Messaging(ctx)
	if err != nil {
		return fmt.Errorf("firebase: error getting Messaging client: %w", err)
	}

	FCMClient = client
	return nil
}

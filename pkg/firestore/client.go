// Package firestore connects to the managed document store backing the
// bulletin read models.
package firestore

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	firebase "firebase.google.com/go/v4"
	"google.golang.org/api/option"

	"github.com/noah-isme/sma-bulletin-core/pkg/config"
)

// NewClient returns a Firestore client, or nil when no backend is configured.
// Credentials are taken from the JSON blob first, then the file, then the
// ambient application default credentials.
func NewClient(ctx context.Context, cfg config.FirebaseConfig) (*firestore.Client, error) {
	if cfg.ProjectID == "" {
		return nil, nil
	}

	var opts []option.ClientOption
	switch {
	case cfg.CredentialsJSON != "":
		opts = append(opts, option.WithCredentialsJSON([]byte(cfg.CredentialsJSON)))
	case cfg.CredentialsFile != "":
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: cfg.ProjectID}, opts...)
	if err != nil {
		return nil, fmt.Errorf("init firebase app: %w", err)
	}

	client, err := app.Firestore(ctx)
	if err != nil {
		return nil, fmt.Errorf("init firestore: %w", err)
	}
	return client, nil
}

package repo

import (
	"context"
	"fmt"
	"strconv"

	"FunnelBot/model"
	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/db"
	"google.golang.org/api/option"
)

const firebaseSessionsPath = "sessions"

// FirebaseStore keeps sessions in the Firebase Realtime Database under
// sessions/<user id>.
type FirebaseStore struct {
	app    *firebase.App
	client *db.Client
}

// NewFirebaseStore connects with a service account key file.
func NewFirebaseStore(ctx context.Context, serviceAccountKeyPath string, databaseURL string) (*FirebaseStore, error) {
	var opts []option.ClientOption
	if serviceAccountKeyPath != "" {
		opts = append(opts, option.WithCredentialsFile(serviceAccountKeyPath))
	}

	config := &firebase.Config{
		DatabaseURL: databaseURL,
	}
	app, err := firebase.NewApp(ctx, config, opts...)
	if err != nil {
		return nil, fmt.Errorf("error initializing Firebase app: %v", err)
	}

	client, err := app.Database(ctx)
	if err != nil {
		return nil, fmt.Errorf("error getting database client: %v", err)
	}

	return &FirebaseStore{
		app:    app,
		client: client,
	}, nil
}

func (fs *FirebaseStore) ref(userID int64) *db.Ref {
	return fs.client.NewRef(firebaseSessionsPath).Child(strconv.FormatInt(userID, 10))
}

func (fs *FirebaseStore) Get(ctx context.Context, userID int64) (*model.Session, error) {
	var session *model.Session
	if err := fs.ref(userID).Get(ctx, &session); err != nil {
		return nil, fmt.Errorf("error reading session: %w", err)
	}
	if session == nil {
		return nil, model.ErrSessionNotFound
	}
	if session.Answers == nil {
		session.Answers = map[string]string{}
	}
	return session, nil
}

func (fs *FirebaseStore) Put(ctx context.Context, userID int64, session *model.Session) error {
	if err := fs.ref(userID).Set(ctx, session); err != nil {
		return fmt.Errorf("error writing session: %w", err)
	}
	return nil
}

func (fs *FirebaseStore) Ping(ctx context.Context) error {
	var keys map[string]any
	if err := fs.client.NewRef(firebaseSessionsPath).OrderByKey().LimitToFirst(1).Get(ctx, &keys); err != nil {
		return fmt.Errorf("error reaching Firebase: %w", err)
	}
	return nil
}

func (fs *FirebaseStore) Close() error {
	return nil
}

package main

import (
	"context"
	"encoding/json"
	"log"
	"os"

	fbapp "firebase.google.com/go/v4"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"google.golang.org/api/option"

	"weddinglink/internal/adapter/api"
	"weddinglink/internal/adapter/api/handler"
	"weddinglink/internal/adapter/api/router"
	"weddinglink/internal/adapter/repository"
	"weddinglink/internal/adapter/surface"
	"weddinglink/internal/infrastructure/firebase"
	"weddinglink/internal/infrastructure/push"
	"weddinglink/internal/infrastructure/storage"
	"weddinglink/internal/infrastructure/websocket"
	"weddinglink/internal/usecase"
	"weddinglink/pkg/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if cfg.SessionToken == "" {
		log.Fatalf("SESSION_TOKEN is required: the messenger runs as one authenticated session")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var opt option.ClientOption
	serviceAccountJSON := os.Getenv("FIREBASE_SERVICE_ACCOUNT_JSON")
	serviceAccountPath := os.Getenv("FIREBASE_SERVICE_ACCOUNT_PATH")
	if serviceAccountJSON != "" {
		log.Printf("Using Firebase service account from environment variable")
		opt = option.WithCredentialsJSON([]byte(serviceAccountJSON))
		serviceAccountPath = ""
	} else {
		if serviceAccountPath == "" {
			serviceAccountPath = "./service-account.json"
		}
		if _, err := os.Stat(serviceAccountPath); os.IsNotExist(err) {
			log.Fatalf("Service account file does not exist: %s", serviceAccountPath)
		}
		log.Printf("Using Firebase service account from file: %s", serviceAccountPath)
		opt = option.WithCredentialsFile(serviceAccountPath)
	}

	firebaseApp, err := fbapp.NewApp(ctx, &fbapp.Config{ProjectID: cfg.FirebaseProject}, opt)
	if err != nil {
		log.Fatalf("Failed to initialize Firebase: %v", err)
	}

	authClient, err := firebaseApp.Auth(ctx)
	if err != nil {
		log.Fatalf("Failed to initialize Firebase Auth: %v", err)
	}

	identity := firebase.NewFirebaseAuthClient(authClient)
	session, err := identity.ResolveSession(ctx, cfg.SessionToken)
	if err != nil {
		log.Fatalf("Failed to resolve session identity: %v", err)
	}
	log.Printf("Running as %s (%s)", session.ID, session.Role)

	storageClient, err := storage.NewCloudStorageClient(ctx, cfg.StorageBucket, serviceAccountPath)
	if err != nil {
		log.Fatalf("Failed to initialize Cloud Storage: %v", err)
	}
	defer storageClient.Close()

	readStateRepo, err := repository.NewSqliteReadStateRepository(cfg.ReadStatePath)
	if err != nil {
		log.Printf("Read-state cache unavailable: %v (continuing without it)", err)
		readStateRepo = nil
	} else {
		defer readStateRepo.Close()
	}

	messagingRepo := repository.NewRestMessagingRepository(cfg.MessagingAPIURL, cfg.SessionToken, nil)

	store := usecase.NewConversationStore(session, messagingRepo, readStateRepo)
	defer store.Close()

	names := usecase.NewDisplayNameResolver(session)
	badge := usecase.NewBadgeAggregator(store)
	uploader := usecase.NewAttachmentUploader(storageClient, cfg.MaxUploadBytes)

	wsManager := websocket.NewManager()
	wsManager.Start(ctx)

	// Every store mutation is fanned out to the connected surfaces so
	// they all re-render from the shared state at the same time.
	store.Subscribe(func(change usecase.StoreChange) {
		payload, err := json.Marshal(map[string]string{
			"event":           string(change.Event),
			"conversation_id": change.ConversationID,
		})
		if err != nil {
			return
		}
		wsManager.Broadcast(payload)
	})

	if cfg.PushURL != "" {
		listener := push.NewListener(cfg.PushURL, cfg.SessionToken, store)
		listener.Start(ctx)
	} else {
		log.Printf("No push URL configured; surfaces rely on explicit refresh")
	}

	if err := store.LoadConversations(ctx); err != nil {
		// Not fatal: surfaces render the error and offer a retry.
		log.Printf("Initial conversation load failed: %v", err)
	}

	bubble := surface.NewBubble(store, names, badge)
	page := surface.NewPage(store, names)

	surfaceHandler := handler.NewSurfaceHandler(store, names, bubble, page)
	attachmentHandler := handler.NewAttachmentHandler(uploader)
	wsHandler := handler.NewWebSocketHandler(wsManager)
	healthHandler := handler.NewHealthHandler()

	e := echo.New()

	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	e.Validator = api.NewValidator()

	router.Setup(e, surfaceHandler, attachmentHandler, wsHandler, healthHandler)

	log.Printf("Starting surface gateway on port %s...", cfg.GatewayPort)
	e.Logger.Fatal(e.Start(":" + cfg.GatewayPort))
}

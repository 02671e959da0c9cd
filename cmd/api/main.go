package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"strings"
	"sync"
	"syscall"
	"time"

	"cloud.google.com/go/firestore"
	"cloud.google.com/go/pubsub"
	cloudstorage "cloud.google.com/go/storage"
	"go.uber.org/zap"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/fitline/api/internal/handlers"
	"github.com/fitline/api/internal/platform/auth"
	"github.com/fitline/api/internal/platform/config"
	pfirestore "github.com/fitline/api/internal/platform/firestore"
	"github.com/fitline/api/internal/platform/idempotency"
	"github.com/fitline/api/internal/platform/jobs"
	"github.com/fitline/api/internal/platform/observability"
	"github.com/fitline/api/internal/platform/secrets"
	platformstorage "github.com/fitline/api/internal/platform/storage"
	"github.com/fitline/api/internal/repositories"
	firestoreRepo "github.com/fitline/api/internal/repositories/firestore"
	gcsRepo "github.com/fitline/api/internal/repositories/gcs"
	"github.com/fitline/api/internal/services"
)

func main() {
	logger, err := observability.NewLogger()
	if err != nil {
		panic(fmt.Sprintf("logger init failed: %v", err))
	}
	defer func() { _ = logger.Sync() }()

	ctx := context.Background()
	started := time.Now().UTC()

	env, err := config.EnvironmentValues()
	if err != nil {
		logger.Fatal("config: environment load failed", zap.Error(err))
	}

	fetcher, err := newSecretFetcher(ctx, logger, env)
	if err != nil {
		logger.Fatal("secrets: fetcher init failed", zap.Error(err))
	}
	defer func() { _ = fetcher.Close() }()

	cfg, err := config.Load(ctx,
		config.WithSecretResolver(config.SecretResolverFunc(fetcher.Resolve)),
		config.WithRequiredSecrets(requiredSecretNames(env)...),
	)
	if err != nil {
		var missing *config.MissingSecretsError
		if errors.As(err, &missing) {
			logger.Fatal("config: required secrets missing", zap.Strings("secrets", missing.RedactedNames()))
		}
		logger.Fatal("config: load failed", zap.Error(err))
	}

	build := buildInfoFromEnv(env, cfg, started)
	logger.Info("starting fitline api",
		zap.String("version", build.Version),
		zap.String("commit", build.CommitSHA),
		zap.String("environment", build.Environment),
	)

	provider := pfirestore.NewProvider(cfg.Firestore)
	fsClient, err := provider.Client(ctx)
	if err != nil {
		logger.Fatal("firestore: client init failed", zap.Error(err))
	}
	defer func() {
		if err := provider.Close(context.Background()); err != nil {
			logger.Warn("firestore: close failed", zap.Error(err))
		}
	}()

	storageClient, err := cloudstorage.NewClient(ctx)
	if err != nil {
		logger.Fatal("storage: client init failed", zap.Error(err))
	}
	defer func() { _ = storageClient.Close() }()

	cartRepo, err := firestoreRepo.NewCartRepository(provider)
	if err != nil {
		logger.Fatal("repositories: cart init failed", zap.Error(err))
	}
	orderRepo, err := firestoreRepo.NewOrderRepository(provider)
	if err != nil {
		logger.Fatal("repositories: order init failed", zap.Error(err))
	}
	quotationRepo, err := firestoreRepo.NewQuotationRepository(provider)
	if err != nil {
		logger.Fatal("repositories: quotation init failed", zap.Error(err))
	}
	memberRepo, err := firestoreRepo.NewMemberRepository(provider)
	if err != nil {
		logger.Fatal("repositories: member init failed", zap.Error(err))
	}
	auditRepo, err := firestoreRepo.NewAuditLogRepository(provider)
	if err != nil {
		logger.Fatal("repositories: audit log init failed", zap.Error(err))
	}
	inventorySource, err := gcsRepo.NewInventorySource(storageClient, cfg.Catalog.Bucket, cfg.Catalog.Object)
	if err != nil {
		logger.Fatal("repositories: inventory source init failed", zap.Error(err))
	}

	serviceLogger := newServiceLogger(logger)

	auditSvc, err := services.NewAuditLogService(services.AuditLogServiceDeps{
		Repository: auditRepo,
	})
	if err != nil {
		logger.Fatal("services: audit log init failed", zap.Error(err))
	}

	inventorySvc, err := services.NewInventoryService(services.InventoryServiceDeps{
		Source:     inventorySource,
		RefreshTTL: cfg.Catalog.RefreshTTL,
		SourceRef:  fmt.Sprintf("gs://%s/%s", cfg.Catalog.Bucket, cfg.Catalog.Object),
		Logger:     serviceLogger("inventory"),
	})
	if err != nil {
		logger.Fatal("services: inventory init failed", zap.Error(err))
	}

	catalogSvc, err := services.NewCatalogService(services.CatalogServiceDeps{
		Inventory:    inventorySvc,
		DefaultLimit: cfg.Catalog.DefaultPageSize,
		MaxLimit:     cfg.Catalog.MaxPageSize,
		Logger:       serviceLogger("catalog"),
	})
	if err != nil {
		logger.Fatal("services: catalog init failed", zap.Error(err))
	}

	cartSvc, err := services.NewCartService(services.CartServiceDeps{
		Carts:     cartRepo,
		Inventory: inventorySvc,
		Logger:    serviceLogger("cart"),
	})
	if err != nil {
		logger.Fatal("services: cart init failed", zap.Error(err))
	}

	var eventPublisher services.OrderEventPublisher
	if cfg.Features.EnableEventPublishing && cfg.Events.ProjectID != "" && cfg.Events.OrderTopic != "" {
		psClient, err := pubsub.NewClient(ctx, cfg.Events.ProjectID)
		if err != nil {
			logger.Fatal("pubsub: client init failed", zap.Error(err))
		}
		defer func() { _ = psClient.Close() }()
		topic := psClient.Topic(cfg.Events.OrderTopic)
		defer topic.Stop()
		publisher, err := jobs.NewPubSubOrderPublisher(topic)
		if err != nil {
			logger.Fatal("pubsub: order publisher init failed", zap.Error(err))
		}
		eventPublisher = publisher
		logger.Info("order event publishing enabled", zap.String("topic", cfg.Events.OrderTopic))
	}

	orderSvc, err := services.NewOrderService(services.OrderServiceDeps{
		Orders: orderRepo,
		Carts:  cartRepo,
		Events: eventPublisher,
		Logger: serviceLogger("orders"),
	})
	if err != nil {
		logger.Fatal("services: order init failed", zap.Error(err))
	}

	quotationSvc, err := services.NewQuotationService(services.QuotationServiceDeps{
		Quotations: quotationRepo,
		Carts:      cartRepo,
		Events:     eventPublisher,
		Logger:     serviceLogger("quotations"),
	})
	if err != nil {
		logger.Fatal("services: quotation init failed", zap.Error(err))
	}

	memberSvc, err := services.NewMemberService(services.MemberServiceDeps{
		Members: memberRepo,
		Audit:   auditSvc,
		Logger:  serviceLogger("members"),
	})
	if err != nil {
		logger.Fatal("services: member init failed", zap.Error(err))
	}

	documentSvc, err := services.NewDocumentService(services.DocumentServiceDeps{
		Orders:     orderRepo,
		Quotations: quotationRepo,
	})
	if err != nil {
		logger.Fatal("services: document init failed", zap.Error(err))
	}

	systemSvc, err := newSystemService(fsClient, fetcher, build, inventorySvc, auditSvc)
	if err != nil {
		logger.Fatal("services: system init failed", zap.Error(err))
	}

	if _, err := inventorySvc.Refresh(ctx); err != nil {
		logger.Warn("inventory: initial snapshot load failed", zap.Error(err))
	}

	idemStore := idempotency.NewFirestoreStore(fsClient)
	idemMiddleware := idempotency.Middleware(idemStore,
		idempotency.WithHeader(cfg.Idempotency.Header),
		idempotency.WithTTL(cfg.Idempotency.TTL),
		idempotency.WithLogger(observability.NewPrintfAdapter(logger.Named("idempotency"))),
	)

	jobCtx, cancelJobs := context.WithCancel(ctx)
	defer cancelJobs()
	var jobWG sync.WaitGroup

	if cfg.Idempotency.CleanupInterval > 0 {
		jobWG.Add(1)
		go func() {
			defer jobWG.Done()
			ticker := time.NewTicker(cfg.Idempotency.CleanupInterval)
			defer ticker.Stop()
			for {
				select {
				case <-jobCtx.Done():
					return
				case now := <-ticker.C:
					removed, err := idemStore.CleanupExpired(jobCtx, now, cfg.Idempotency.CleanupBatchSize)
					if err != nil {
						logger.Warn("idempotency: cleanup failed", zap.Error(err))
						continue
					}
					if removed > 0 {
						logger.Debug("idempotency: removed expired records", zap.Int("removed", removed))
					}
				}
			}
		}()
	}

	if cfg.Features.EnableBackgroundRefresh && cfg.Catalog.RefreshTTL > 0 {
		jobWG.Add(1)
		go func() {
			defer jobWG.Done()
			ticker := time.NewTicker(cfg.Catalog.RefreshTTL)
			defer ticker.Stop()
			for {
				select {
				case <-jobCtx.Done():
					return
				case <-ticker.C:
					result, err := inventorySvc.Refresh(jobCtx)
					if err != nil {
						logger.Warn("inventory: background refresh failed", zap.Error(err))
						continue
					}
					logger.Debug("inventory: background refresh completed",
						zap.Int("fetched", result.Fetched),
						zap.Int("accepted", result.Accepted),
						zap.Bool("skipped", result.Skipped),
					)
				}
			}
		}()
	}

	copier, err := platformstorage.NewCopier(storageClient)
	if err != nil {
		logger.Fatal("storage: copier init failed", zap.Error(err))
	}
	archiver, err := platformstorage.NewSnapshotArchiver(copier, cfg.Catalog.Bucket, cfg.Catalog.Object, time.Now)
	if err != nil {
		logger.Fatal("storage: snapshot archiver init failed", zap.Error(err))
	}

	adminOpts := []handlers.AdminOption{
		handlers.WithAdminSnapshotArchiver(archiver),
		handlers.WithAdminLogger(serviceLogger("admin")),
	}
	if signedClient, err := newSnapshotURLClient(ctx, fetcher, env); err != nil {
		logger.Warn("storage: snapshot url signer unavailable", zap.Error(err))
	} else if signedClient != nil {
		adminOpts = append(adminOpts, handlers.WithAdminSnapshotSigner(signedClient, cfg.Catalog.Bucket, cfg.Catalog.Object))
	}

	verifier, err := auth.NewFirebaseVerifier(ctx, cfg.Firebase)
	if err != nil {
		logger.Fatal("auth: firebase verifier init failed", zap.Error(err))
	}
	authn := auth.NewAuthenticator(verifier, auth.WithUserGetter(verifier))

	oidcMiddleware := buildOIDCMiddleware(logger, cfg)
	hmacMiddleware := buildHMACMiddleware(logger, cfg)
	projectID := traceProjectID(cfg)

	healthHandlers := handlers.NewHealthHandlers(
		handlers.WithHealthSystemService(systemSvc),
		handlers.WithHealthBuildInfo(build),
	)
	publicHandlers := handlers.NewPublicCatalogHandlers(catalogSvc,
		handlers.WithCatalogRateLimit(cfg.RateLimits.DefaultPerMinute, time.Now),
	)
	meHandlers := handlers.NewMeHandlers(authn, memberSvc)
	cartHandlers := handlers.NewCartHandlers(authn, cartSvc)
	orderHandlers := handlers.NewOrderHandlers(authn, orderSvc,
		handlers.WithOrderIdempotency(idemMiddleware),
	)
	quotationHandlers := handlers.NewQuotationHandlers(authn, quotationSvc,
		handlers.WithQuotationIdempotency(idemMiddleware),
	)
	documentHandlers := handlers.NewDocumentHandlers(authn, documentSvc)
	adminHandlers := handlers.NewAdminHandlers(authn, memberSvc, orderSvc, quotationSvc, systemSvc, inventorySvc, adminOpts...)
	webhookHandlers := handlers.NewWebhookHandlers(inventorySvc,
		handlers.WithWebhookLogger(serviceLogger("webhooks")),
	)
	internalHandlers := handlers.NewInternalHandlers(inventorySvc)

	routerOpts := []handlers.Option{
		handlers.WithMiddlewares(
			observability.InjectLoggerMiddleware(logger),
			observability.TraceMiddleware(projectID),
			observability.RequestLoggerMiddleware(projectID),
			observability.RecoveryMiddleware(logger),
		),
		handlers.WithHealthHandlers(healthHandlers),
		handlers.WithPublicRoutes(publicHandlers.Routes),
		handlers.WithMeRoutes(meHandlers.Routes),
		handlers.WithCartRoutes(cartHandlers.Routes),
		handlers.WithOrderRoutes(orderHandlers.Routes),
		handlers.WithQuotationRoutes(quotationHandlers.Routes),
		handlers.WithDocumentRoutes(documentHandlers.Routes),
		handlers.WithAdminRoutes(adminHandlers.Routes),
	}
	if hmacMiddleware != nil {
		routerOpts = append(routerOpts,
			handlers.WithWebhookRoutes(webhookHandlers.Routes),
			handlers.WithWebhookMiddlewares(hmacMiddleware),
		)
	} else {
		logger.Warn("webhooks: HMAC secrets not configured; webhook routes disabled")
	}
	if oidcMiddleware != nil {
		routerOpts = append(routerOpts,
			handlers.WithInternalRoutes(internalHandlers.Routes),
			handlers.WithInternalMiddlewares(oidcMiddleware),
		)
	} else {
		logger.Warn("internal: OIDC not configured; internal routes disabled")
	}

	router := handlers.NewRouter(routerOpts...)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("fitline api listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		logger.Error("server failed", zap.Error(err))
	case sig := <-stop:
		logger.Info("shutdown signal received", zap.String("signal", sig.String()))
	}

	cancelJobs()
	jobWG.Wait()

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown failed", zap.Error(err))
	}
}

// newServiceLogger adapts the shared zap logger to the field-map logging
// callback the service layer accepts, named per service.
func newServiceLogger(logger *zap.Logger) func(name string) func(ctx context.Context, msg string, fields map[string]any) {
	return func(name string) func(ctx context.Context, msg string, fields map[string]any) {
		named := logger.Named(name)
		return func(_ context.Context, msg string, fields map[string]any) {
			zapFields := make([]zap.Field, 0, len(fields))
			for key, value := range fields {
				zapFields = append(zapFields, zap.Any(key, value))
			}
			named.Info(msg, zapFields...)
		}
	}
}

func buildInfoFromEnv(env map[string]string, cfg config.Config, started time.Time) services.BuildInfo {
	version := strings.TrimSpace(env["API_BUILD_VERSION"])
	if version == "" {
		version = "dev"
	}
	commit := strings.TrimSpace(env["API_BUILD_COMMIT_SHA"])
	if commit == "" {
		commit = "unknown"
	}
	environment := strings.TrimSpace(cfg.Security.Environment)
	if environment == "" {
		environment = "local"
	}
	return services.BuildInfo{
		Version:     version,
		CommitSHA:   commit,
		Environment: environment,
		StartedAt:   started,
	}
}

func newSystemService(client *firestore.Client, fetcher *secrets.Fetcher, build services.BuildInfo, inventory services.InventoryService, audit services.AuditLogService) (services.SystemService, error) {
	checks := make([]repositories.DependencyCheck, 0, 2)
	if client != nil {
		c := client
		checks = append(checks, repositories.DependencyCheck{
			Name:    "firestore",
			Timeout: 1500 * time.Millisecond,
			Check: func(ctx context.Context) error {
				iter := c.Collections(ctx)
				_, err := iter.Next()
				if errors.Is(err, iterator.Done) {
					return nil
				}
				return err
			},
		})
	}
	if fetcher != nil {
		const secretHealthReference = "secret://system/healthz?version=latest"
		checks = append(checks, repositories.DependencyCheck{
			Name:    "secretManager",
			Timeout: time.Second,
			Check: func(ctx context.Context) error {
				_, err := fetcher.Resolve(ctx, secretHealthReference)
				if err == nil {
					return nil
				}
				if st, ok := status.FromError(err); ok {
					switch st.Code() {
					case codes.NotFound:
						return nil
					}
				}
				return err
			},
		})
	}
	if len(checks) == 0 {
		return nil, errors.New("health: no dependency checks configured")
	}
	repo, err := repositories.NewDependencyHealthRepository(checks)
	if err != nil {
		return nil, err
	}
	return services.NewSystemService(services.SystemServiceDeps{
		HealthRepository: repo,
		Inventory:        inventory,
		Clock:            time.Now,
		Build:            build,
		Audit:            audit,
	})
}

// newSnapshotURLClient builds the signed-URL client for admin snapshot
// downloads. Returns nil without error when no signer key is configured.
func newSnapshotURLClient(ctx context.Context, fetcher *secrets.Fetcher, env map[string]string) (*platformstorage.Client, error) {
	raw := strings.TrimSpace(env["API_CATALOG_SIGNER_KEY"])
	if raw == "" {
		return nil, nil
	}

	if strings.HasPrefix(raw, "sm://") {
		raw = "secret://" + strings.TrimPrefix(raw, "sm://")
	}
	if strings.HasPrefix(raw, "secret://") {
		resolved, err := fetcher.Resolve(ctx, raw)
		if err != nil {
			return nil, fmt.Errorf("resolve signer key: %w", err)
		}
		raw = resolved
	}

	var signer *platformstorage.ServiceAccountSigner
	var err error
	if strings.HasPrefix(strings.TrimSpace(raw), "{") {
		signer, err = platformstorage.NewServiceAccountSignerFromJSON([]byte(raw))
	} else {
		signer, err = platformstorage.NewServiceAccountSignerFromFile(raw)
	}
	if err != nil {
		return nil, err
	}
	return platformstorage.NewClient(signer)
}

func buildOIDCMiddleware(logger *zap.Logger, cfg config.Config) func(http.Handler) http.Handler {
	if strings.TrimSpace(cfg.Security.OIDC.JWKSURL) == "" {
		return nil
	}

	if logger == nil {
		logger = zap.NewNop()
	}

	adapter := observability.NewPrintfAdapter(logger)
	cache := auth.NewJWKSCache(cfg.Security.OIDC.JWKSURL, auth.WithJWKSLogger(adapter))
	validator := auth.NewOIDCValidator(cache, auth.WithOIDCLogger(adapter))

	audience := strings.TrimSpace(cfg.Security.OIDC.Audience)
	if audience == "" {
		logger.Warn("auth: OIDC audience not configured; internal routes will reject requests")
	}
	issuers := cfg.Security.OIDC.Issuers
	if len(issuers) == 0 {
		logger.Warn("auth: OIDC issuers not configured; internal routes will reject requests")
	}

	return validator.RequireOIDC(audience, issuers)
}

func buildHMACMiddleware(logger *zap.Logger, cfg config.Config) func(http.Handler) http.Handler {
	secrets := make(map[string]string)
	for key, value := range cfg.Security.HMAC.Secrets {
		if strings.TrimSpace(value) == "" {
			continue
		}
		secrets[strings.ToLower(key)] = value
	}
	if len(secrets) == 0 {
		return nil
	}

	provider := staticSecretProvider{secrets: secrets}
	nonces := auth.NewInMemoryNonceStore()
	adapter := observability.NewPrintfAdapter(logger)
	validator := auth.NewHMACValidator(provider, nonces,
		auth.WithHMACLogger(adapter),
		auth.WithHMACHeaders(cfg.Security.HMAC.SignatureHeader, cfg.Security.HMAC.TimestampHeader, cfg.Security.HMAC.NonceHeader),
		auth.WithHMACClockSkew(cfg.Security.HMAC.ClockSkew),
		auth.WithHMACNonceTTL(cfg.Security.HMAC.NonceTTL),
	)

	resolver := webhookSecretResolver(secrets)
	return validator.RequireHMACResolver(resolver)
}

type staticSecretProvider struct {
	secrets map[string]string
}

func (p staticSecretProvider) GetSecret(_ context.Context, name string) (string, error) {
	if len(p.secrets) == 0 {
		return "", errors.New("auth: hmac secrets not configured")
	}
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" {
		return "", errors.New("auth: secret name required")
	}
	if secret, ok := p.secrets[key]; ok && secret != "" {
		return secret, nil
	}
	return "", errors.New("auth: secret not found")
}

func webhookSecretResolver(secrets map[string]string) func(*http.Request) (string, bool) {
	return func(r *http.Request) (string, bool) {
		path := r.URL.Path
		if idx := strings.Index(path, "/webhooks/"); idx >= 0 {
			path = path[idx+len("/webhooks/"):]
		}
		path = strings.Trim(path, "/")
		if path == "" {
			if secret, ok := secrets["default"]; ok && secret != "" {
				return "default", true
			}
			return "", false
		}

		segments := strings.Split(path, "/")
		candidates := make([]string, 0, 3)
		if len(segments) >= 2 {
			candidates = append(candidates, strings.ToLower(strings.Join(segments[:2], "/")))
		}
		if len(segments) >= 1 {
			candidates = append(candidates, strings.ToLower(segments[0]))
		}
		candidates = append(candidates, "default")

		for _, candidate := range candidates {
			if secret, ok := secrets[candidate]; ok && secret != "" {
				return candidate, true
			}
		}
		return "", false
	}
}

func traceProjectID(cfg config.Config) string {
	if id := strings.TrimSpace(cfg.Firebase.ProjectID); id != "" {
		return id
	}
	return strings.TrimSpace(cfg.Firestore.ProjectID)
}

func newSecretFetcher(ctx context.Context, logger *zap.Logger, env map[string]string) (*secrets.Fetcher, error) {
	lookup := func(key string) string {
		if env == nil {
			return ""
		}
		if value, ok := env[key]; ok {
			return strings.TrimSpace(value)
		}
		return ""
	}

	envLabel := strings.ToLower(lookup("API_SECURITY_ENVIRONMENT"))
	if envLabel == "" {
		envLabel = "local"
	}
	projectMap := secretProjectMapFromEnv(env)
	defaultProject := lookup("API_SECRET_DEFAULT_PROJECT_ID")
	if defaultProject == "" {
		defaultProject = lookup("API_FIREBASE_PROJECT_ID")
	}
	fallbackPath := lookup("API_SECRET_FALLBACK_FILE")
	if fallbackPath == "" {
		fallbackPath = ".secrets.local"
	}
	versionPins := secretVersionPinsFromEnv(env)
	credentialsFile := lookup("API_FIREBASE_CREDENTIALS_FILE")

	opts := []secrets.Option{
		secrets.WithEnvironment(envLabel),
		secrets.WithLogger(logger.Named("secrets")),
		secrets.WithFallbackFile(fallbackPath),
	}
	if len(projectMap) > 0 {
		opts = append(opts, secrets.WithProjectMap(projectMap))
	}
	if defaultProject != "" {
		opts = append(opts, secrets.WithDefaultProject(defaultProject))
	}
	if len(versionPins) > 0 {
		opts = append(opts, secrets.WithVersionPins(versionPins))
	}
	if credentialsFile != "" {
		opts = append(opts, secrets.WithClientOptions(option.WithCredentialsFile(credentialsFile)))
	}

	return secrets.NewFetcher(ctx, opts...)
}

func requiredSecretNames(env map[string]string) []string {
	hmacRaw := ""
	if env != nil {
		hmacRaw = strings.TrimSpace(env["API_SECURITY_HMAC_SECRETS"])
	}
	required := make([]string, 0, 4)
	for _, key := range parseHMACSecretKeys(hmacRaw) {
		required = append(required, fmt.Sprintf("Security.HMAC.Secrets[%s]", key))
	}
	return uniqueStrings(required)
}

func secretProjectMapFromEnv(env map[string]string) map[string]string {
	raw := ""
	if env != nil {
		raw = env["API_SECRET_PROJECT_IDS"]
	}
	raw = strings.TrimSpace(raw)
	projects := make(map[string]string)
	if raw == "" {
		return projects
	}
	entries := strings.Split(raw, ",")
	for _, entry := range entries {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		parts := strings.SplitN(entry, "=", 2)
		if len(parts) != 2 {
			continue
		}
		envLabel := strings.ToLower(strings.TrimSpace(parts[0]))
		project := strings.TrimSpace(parts[1])
		if envLabel == "" || project == "" {
			continue
		}
		projects[envLabel] = project
	}
	return projects
}

func secretVersionPinsFromEnv(env map[string]string) map[string]string {
	raw := ""
	if env != nil {
		raw = env["API_SECRET_VERSION_PINS"]
	}
	raw = strings.TrimSpace(raw)
	pins := make(map[string]string)
	if raw == "" {
		return pins
	}
	entries := strings.Split(raw, ",")
	for _, entry := range entries {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		parts := strings.SplitN(entry, "=", 2)
		if len(parts) != 2 {
			continue
		}
		ref := strings.TrimSpace(parts[0])
		version := strings.TrimSpace(parts[1])
		if ref == "" || version == "" {
			continue
		}
		var prefix string
		if idx := strings.Index(ref, ":"); idx > 0 {
			schemeSplit := strings.Index(ref, "://")
			if schemeSplit == -1 || idx < schemeSplit {
				prefix = strings.ToLower(strings.TrimSpace(ref[:idx])) + ":"
				ref = strings.TrimSpace(ref[idx+1:])
			}
		}
		if strings.HasPrefix(ref, "sm://") {
			ref = "secret://" + strings.TrimPrefix(ref, "sm://")
		} else if !strings.HasPrefix(ref, "secret://") {
			ref = "secret://" + ref
		}
		ref = prefix + ref
		pins[ref] = version
	}
	return pins
}

func parseHMACSecretKeys(raw string) []string {
	values := parseKeyValueList(raw)
	if len(values) == 0 {
		return nil
	}
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, strings.ToLower(key))
	}
	sort.Strings(keys)
	return keys
}

func parseKeyValueList(raw string) map[string]string {
	result := make(map[string]string)
	if strings.TrimSpace(raw) == "" {
		return result
	}
	entries := strings.Split(raw, ",")
	for _, entry := range entries {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		parts := strings.SplitN(entry, "=", 2)
		if len(parts) != 2 {
			continue
		}
		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])
		if key == "" || value == "" {
			continue
		}
		result[key] = value
	}
	return result
}

func uniqueStrings(values []string) []string {
	seen := make(map[string]struct{})
	out := make([]string, 0, len(values))
	for _, value := range values {
		trimmed := strings.TrimSpace(value)
		if trimmed == "" {
			continue
		}
		if _, ok := seen[trimmed]; ok {
			continue
		}
		seen[trimmed] = struct{}{}
		out = append(out, trimmed)
	}
	sort.Strings(out)
	return out
}

package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/counselcms/server/internal/api/handlers"
	"github.com/counselcms/server/internal/api/middleware"
	"github.com/counselcms/server/internal/api/problem"
	"github.com/counselcms/server/internal/audit"
	"github.com/counselcms/server/internal/auth"
	"github.com/counselcms/server/internal/config"
	"github.com/counselcms/server/internal/domain/blog"
	"github.com/counselcms/server/internal/domain/careers"
	"github.com/counselcms/server/internal/domain/inquiries"
	"github.com/counselcms/server/internal/domain/pages"
	"github.com/counselcms/server/internal/domain/showcase"
	"github.com/counselcms/server/internal/domain/siteconfig"
	"github.com/counselcms/server/internal/domain/users"
	"github.com/counselcms/server/internal/email"
	"github.com/counselcms/server/internal/jobs"
	"github.com/counselcms/server/internal/metrics"
	"github.com/counselcms/server/internal/site"
	"github.com/counselcms/server/internal/storage"
	"github.com/counselcms/server/internal/storage/files"
	"github.com/counselcms/server/internal/storage/memory"
	"github.com/counselcms/server/internal/storage/postgres"
	"github.com/counselcms/server/web"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/rivertype"
	"github.com/rs/zerolog"
)

const (
	publicBodyLimit = 1 << 20
	// applyBodyLimit leaves room for the form fields next to a maximum size resume.
	applyBodyLimit = careers.MaxResumeBytes + 1<<20
)

// JWTIssuer is the iss claim of session tokens.
const JWTIssuer = "counsel-cms"

// RouterWithClient is the assembled HTTP handler plus the background pieces
// the caller starts and stops.
type RouterWithClient struct {
	Handler     http.Handler
	RiverClient *river.Client[pgx.Tx]
	// Watcher is set when templates are loaded from TEMPLATE_DIR.
	Watcher     *site.Watcher
	RateLimiter *middleware.RateLimiter
	Users       *users.Service
}

// Close releases what NewRouter started.
func (r *RouterWithClient) Close() {
	if r.RateLimiter != nil {
		r.RateLimiter.Stop()
	}
}

// NewRouter wires storage, services and handlers. A nil pool selects the
// in-memory store and disables background jobs.
func NewRouter(cfg config.Config, logger zerolog.Logger, pool *pgxpool.Pool, version, gitCommit, buildDate string) (*RouterWithClient, error) {
	var backend storage.Repository
	if pool != nil {
		repo, err := postgres.NewRepository(pool)
		if err != nil {
			return nil, fmt.Errorf("repository init: %w", err)
		}
		backend = repo
	} else {
		logger.Warn().Msg("no database pool, using in-memory store")
		backend = memory.New()
	}
	repos := backend.Repositories()

	fileStore, err := files.New(cfg.Uploads.Dir)
	if err != nil {
		return nil, fmt.Errorf("upload store: %w", err)
	}

	templates, watcher, err := loadTemplates(cfg.Site.TemplateDir, logger)
	if err != nil {
		return nil, err
	}

	auditLogger := audit.NewLogger(logger)
	configService := siteconfig.NewService(repos.SiteConfig, siteconfig.NewCache(repos.SiteConfig, cfg.Site.ConfigTTL))
	pageService := pages.NewService(repos.Pages)
	postService := blog.NewService(repos.Blog)
	userService := users.NewService(repos.Users, auditLogger, logger)
	team := showcase.NewService[showcase.TeamMember](repos.Showcase, showcase.Team)
	clients := showcase.NewService[showcase.Client](repos.Showcase, showcase.Clients)
	slides := showcase.NewService[showcase.Slide](repos.Showcase, showcase.Sliders)
	gallery := showcase.NewService[showcase.GalleryItem](repos.Showcase, showcase.Gallery)

	var riverClient *river.Client[pgx.Tx]
	var notifier interface {
		careers.Notifier
		inquiries.Notifier
	} = jobs.LogNotifier{}
	if pool != nil && cfg.Jobs.Enabled {
		mailer, err := email.NewService(cfg.Email, logger)
		if err != nil {
			return nil, fmt.Errorf("email service: %w", err)
		}
		policy := jobs.NewRetryPolicy(cfg.Jobs.RetryNotification)
		// Workers only read and purge, so their careers service never notifies.
		workers := jobs.NewWorkers(jobs.Deps{
			Mailer:     mailer,
			Inquiries:  repos.Inquiries,
			Applicants: careers.NewService(repos.Careers, fileStore, nil),
			SiteConfig: configService,
			BaseURL:    cfg.Server.BaseURL,
			Logger:     slog.Default(),
		})
		riverConfig := jobs.NewClientConfig(workers, policy, slog.Default(),
			[]rivertype.Hook{metrics.NewJobMetricsHook()}, jobs.NewPeriodicJobs(cfg.Jobs.ApplicantRetentionDays))
		riverClient, err = jobs.NewClient(pool, riverConfig)
		if err != nil {
			return nil, fmt.Errorf("river client: %w", err)
		}
		notifier = jobs.NewNotifier(riverClient, policy)
		logger.Info().Str("email_transport", mailer.Provider()).Msg("background jobs enabled")
	}

	careerService := careers.NewService(repos.Careers, fileStore, notifier)
	inquiryService := inquiries.NewService(repos.Inquiries, notifier)

	renderer := site.NewRenderer(templates, site.Sources{
		Team:    team,
		Clients: clients,
		Slides:  slides,
		Gallery: gallery,
		Posts:   postService,
		Jobs:    careerService,
	}, cfg.Server.BaseURL)

	env := cfg.Environment
	jwtManager := auth.NewJWTManager(cfg.Auth.JWTSecret, cfg.Auth.JWTExpiry, JWTIssuer)
	rateLimiter := middleware.NewRateLimiter(cfg.RateLimit)

	siteHandler := handlers.NewSiteHandler(renderer, pageService, configService, postService, careerService, inquiryService, cfg.Server.BaseURL, env)
	authHandler := handlers.NewAdminAuthHandler(userService, jwtManager, renderer, auditLogger, env, cfg.IsProduction())
	consoleHandler := handlers.NewAdminHTMLHandler(renderer, pageService, postService, careerService, inquiryService, configService, env)
	pagesHandler := handlers.NewPagesHandler(pageService, auditLogger, env)
	blogHandler := handlers.NewBlogHandler(postService, auditLogger, env)
	careersHandler := handlers.NewCareersHandler(careerService, fileStore, auditLogger, env)
	inquiriesHandler := handlers.NewInquiriesHandler(inquiryService, auditLogger, env)
	configHandler := handlers.NewSiteConfigHandler(configService, auditLogger, env)
	uploadsHandler := handlers.NewUploadsHandler(fileStore, auditLogger, env)
	usersHandler := handlers.NewAdminUsersHandler(userService, env)
	health := handlers.NewHealthChecker(pool, riverClient, cfg.Uploads.Dir, version, gitCommit)

	csrf := middleware.CSRFProtection(cfg.CSRFKey(), cfg.IsProduction(), env)
	tier := func(t middleware.RateLimitTier) func(http.Handler) http.Handler {
		return func(next http.Handler) http.Handler {
			return middleware.WithRateLimitTierHandler(t)(rateLimiter.Middleware(next))
		}
	}
	public := chain(tier(middleware.TierPublic), middleware.RequestSize(publicBodyLimit), csrf)
	form := chain(tier(middleware.TierForm), middleware.RequestSize(publicBodyLimit), csrf)
	console := chain(tier(middleware.TierAdmin), middleware.RequestSize(publicBodyLimit), csrf, middleware.AdminAuthCookie(jwtManager))
	adminAPI := chain(tier(middleware.TierAdmin), middleware.RequestSize(publicBodyLimit), csrf, middleware.AdminAPIAuth(jwtManager, env))
	adminOnly := chain(adminAPI, middleware.RequireRole(env, auth.RoleAdmin))
	cors := middleware.CORS(cfg.CORS, logger)
	publicJSON := chain(tier(middleware.TierPublic), cors)

	mux := http.NewServeMux()

	// Method-less patterns would conflict with GET /{slug}.
	mux.Handle("GET /healthz", handlers.Healthz())
	mux.Handle("GET /readyz", handlers.Readyz())
	mux.Handle("GET /health", health.Health())
	mux.Handle("GET /version", VersionHandler(version, gitCommit, buildDate))
	mux.Handle("GET /metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))
	mux.Handle("GET /static/", web.StaticHandler("/static/"))
	mux.Handle("GET /uploads/{name}", tier(middleware.TierPublic)(http.HandlerFunc(uploadsHandler.Serve)))

	// Public site.
	mux.Handle("GET /{$}", public(http.HandlerFunc(siteHandler.Home)))
	mux.Handle("GET /{slug}", public(http.HandlerFunc(siteHandler.Page)))
	mux.Handle("GET /robots.txt", public(http.HandlerFunc(siteHandler.Robots)))
	mux.Handle("GET /sitemap.xml", public(http.HandlerFunc(siteHandler.Sitemap)))
	mux.Handle("GET /blog", public(http.HandlerFunc(siteHandler.BlogList)))
	mux.Handle("GET /blog/{slug}", public(http.HandlerFunc(siteHandler.BlogPost)))
	mux.Handle("GET /careers", public(http.HandlerFunc(siteHandler.Careers)))
	mux.Handle("GET /careers/{slug}", public(http.HandlerFunc(siteHandler.Job)))
	mux.Handle("POST /contact", form(http.HandlerFunc(siteHandler.Contact)))
	mux.Handle("POST /careers/{slug}/apply", chain(tier(middleware.TierForm), middleware.RequestSize(applyBodyLimit), csrf)(http.HandlerFunc(siteHandler.Apply)))

	// Public JSON.
	mux.Handle("GET /api/v1/openapi.json", publicJSON(OpenAPIHandler()))
	mux.Handle("GET /api/v1/pages/{slug}", publicJSON(http.HandlerFunc(pagesHandler.GetPublished)))
	mux.Handle("GET /api/v1/config", publicJSON(http.HandlerFunc(configHandler.Get)))
	mux.Handle("GET /api/v1/posts", publicJSON(http.HandlerFunc(blogHandler.ListPublished)))
	mux.Handle("GET /api/v1/jobs", publicJSON(http.HandlerFunc(careersHandler.OpenJobs)))

	// Admin console.
	mux.Handle("GET /admin/login", public(http.HandlerFunc(authHandler.LoginPage)))
	mux.Handle("POST /admin/login", chain(tier(middleware.TierLogin), csrf)(http.HandlerFunc(authHandler.LoginForm)))
	mux.Handle("POST /admin/logout", public(http.HandlerFunc(authHandler.Logout)))
	mux.Handle("GET /admin", console(http.HandlerFunc(consoleHandler.Dashboard)))
	mux.Handle("GET /admin/{resource}", console(http.HandlerFunc(consoleHandler.Resource)))
	mux.Handle("GET /admin/pages/{id}", console(http.HandlerFunc(consoleHandler.PageEdit)))
	mux.Handle("GET /admin/preview/{id}", console(http.HandlerFunc(consoleHandler.Preview)))

	// Admin API. The JSON login only accepts application/json bodies, which
	// browsers cannot send cross-site without a preflight, so it skips CSRF.
	mux.Handle("POST /api/v1/admin/login", chain(tier(middleware.TierLogin), middleware.RequestSize(publicBodyLimit))(http.HandlerFunc(authHandler.Login)))
	mux.Handle("POST /api/v1/admin/logout", adminAPI(http.HandlerFunc(authHandler.Logout)))

	mux.Handle("GET /api/v1/admin/pages", adminAPI(http.HandlerFunc(pagesHandler.List)))
	mux.Handle("POST /api/v1/admin/pages", adminAPI(http.HandlerFunc(pagesHandler.Create)))
	mux.Handle("GET /api/v1/admin/pages/{id}", adminAPI(http.HandlerFunc(pagesHandler.Get)))
	mux.Handle("PUT /api/v1/admin/pages/{id}", adminAPI(http.HandlerFunc(pagesHandler.Update)))
	mux.Handle("DELETE /api/v1/admin/pages/{id}", adminAPI(http.HandlerFunc(pagesHandler.Delete)))
	mux.Handle("POST /api/v1/admin/pages/{id}/sections", adminAPI(http.HandlerFunc(pagesHandler.AddSection)))
	mux.Handle("POST /api/v1/admin/pages/{id}/sections/reorder", adminAPI(http.HandlerFunc(pagesHandler.ReorderSections)))
	mux.Handle("PUT /api/v1/admin/pages/{id}/sections/{sectionID}", adminAPI(http.HandlerFunc(pagesHandler.UpdateSection)))
	mux.Handle("DELETE /api/v1/admin/pages/{id}/sections/{sectionID}", adminAPI(http.HandlerFunc(pagesHandler.DeleteSection)))

	mux.Handle("GET /api/v1/admin/jobs", adminAPI(http.HandlerFunc(careersHandler.ListJobs)))
	mux.Handle("POST /api/v1/admin/jobs", adminAPI(http.HandlerFunc(careersHandler.CreateJob)))
	mux.Handle("GET /api/v1/admin/jobs/{id}", adminAPI(http.HandlerFunc(careersHandler.GetJob)))
	mux.Handle("PUT /api/v1/admin/jobs/{id}", adminAPI(http.HandlerFunc(careersHandler.UpdateJob)))
	mux.Handle("DELETE /api/v1/admin/jobs/{id}", adminAPI(http.HandlerFunc(careersHandler.DeleteJob)))
	mux.Handle("GET /api/v1/admin/applicants", adminAPI(http.HandlerFunc(careersHandler.ListApplicants)))
	mux.Handle("GET /api/v1/admin/applicants/{id}", adminAPI(http.HandlerFunc(careersHandler.GetApplicant)))
	mux.Handle("DELETE /api/v1/admin/applicants/{id}", adminAPI(http.HandlerFunc(careersHandler.DeleteApplicant)))
	mux.Handle("PUT /api/v1/admin/applicants/{id}/status", adminAPI(http.HandlerFunc(careersHandler.UpdateApplicantStatus)))
	mux.Handle("GET /api/v1/admin/applicants/{id}/resume", adminAPI(http.HandlerFunc(careersHandler.Resume)))

	handlers.NewCollectionHandler(team, auditLogger, env).Register(mux, "/api/v1/admin/team", adminAPI)
	handlers.NewCollectionHandler(clients, auditLogger, env).Register(mux, "/api/v1/admin/clients", adminAPI)
	handlers.NewCollectionHandler(slides, auditLogger, env).Register(mux, "/api/v1/admin/sliders", adminAPI)
	handlers.NewCollectionHandler(gallery, auditLogger, env).Register(mux, "/api/v1/admin/gallery", adminAPI)

	mux.Handle("GET /api/v1/admin/posts", adminAPI(http.HandlerFunc(blogHandler.List)))
	mux.Handle("POST /api/v1/admin/posts", adminAPI(http.HandlerFunc(blogHandler.Create)))
	mux.Handle("GET /api/v1/admin/posts/{id}", adminAPI(http.HandlerFunc(blogHandler.Get)))
	mux.Handle("PUT /api/v1/admin/posts/{id}", adminAPI(http.HandlerFunc(blogHandler.Update)))
	mux.Handle("DELETE /api/v1/admin/posts/{id}", adminAPI(http.HandlerFunc(blogHandler.Delete)))

	mux.Handle("GET /api/v1/admin/config", adminAPI(http.HandlerFunc(configHandler.Get)))
	mux.Handle("PUT /api/v1/admin/config", adminAPI(http.HandlerFunc(configHandler.Update)))

	mux.Handle("GET /api/v1/admin/inquiries", adminAPI(http.HandlerFunc(inquiriesHandler.List)))
	mux.Handle("GET /api/v1/admin/inquiries/{id}", adminAPI(http.HandlerFunc(inquiriesHandler.Get)))
	mux.Handle("PUT /api/v1/admin/inquiries/{id}/read", adminAPI(http.HandlerFunc(inquiriesHandler.MarkRead)))
	mux.Handle("DELETE /api/v1/admin/inquiries/{id}", adminAPI(http.HandlerFunc(inquiriesHandler.Delete)))

	mux.Handle("GET /api/v1/admin/uploads", adminAPI(http.HandlerFunc(uploadsHandler.List)))
	mux.Handle("POST /api/v1/admin/uploads", chain(tier(middleware.TierAdmin), middleware.RequestSize(cfg.Uploads.MaxBytes), csrf,
		middleware.AdminAPIAuth(jwtManager, env))(http.HandlerFunc(uploadsHandler.Upload)))
	mux.Handle("DELETE /api/v1/admin/uploads/{name}", adminAPI(http.HandlerFunc(uploadsHandler.Delete)))

	mux.Handle("GET /api/v1/admin/users", adminOnly(http.HandlerFunc(usersHandler.ListUsers)))
	mux.Handle("POST /api/v1/admin/users", adminOnly(http.HandlerFunc(usersHandler.CreateUser)))
	mux.Handle("PUT /api/v1/admin/users/{id}/password", adminOnly(http.HandlerFunc(usersHandler.ChangePassword)))
	mux.Handle("DELETE /api/v1/admin/users/{id}", adminOnly(http.HandlerFunc(usersHandler.DeleteUser)))

	mux.HandleFunc("/api/", func(w http.ResponseWriter, r *http.Request) {
		problem.Write(w, r, http.StatusNotFound, problem.TypeNotFound, "Not found", nil, env)
	})
	mux.Handle("/", public(http.HandlerFunc(siteHandler.NotFound)))

	var handler http.Handler = metrics.HTTPMiddleware(mux)
	handler = middleware.SecurityHeaders(cfg.IsProduction())(handler)
	if cfg.Tracing.Enabled {
		handler = middleware.Tracing(handler)
	}
	handler = middleware.RequestLogging(logger)(handler)
	handler = middleware.CorrelationID(logger)(handler)

	return &RouterWithClient{
		Handler:     handler,
		RiverClient: riverClient,
		Watcher:     watcher,
		RateLimiter: rateLimiter,
		Users:       userService,
	}, nil
}

// loadTemplates uses the embedded templates unless dir is set, in which case
// they are read from disk and reloaded on change.
func loadTemplates(dir string, logger zerolog.Logger) (*site.Templates, *site.Watcher, error) {
	if dir == "" {
		templates, err := site.LoadTemplates(web.Templates())
		if err != nil {
			return nil, nil, fmt.Errorf("load templates: %w", err)
		}
		return templates, nil, nil
	}
	templates, err := site.LoadTemplates(os.DirFS(dir))
	if err != nil {
		return nil, nil, fmt.Errorf("load templates from %s: %w", dir, err)
	}
	watcher, err := site.NewWatcher(dir, templates, logger)
	if err != nil {
		return nil, nil, err
	}
	return templates, watcher, nil
}

// chain applies middleware so the first argument is outermost.
func chain(mws ...func(http.Handler) http.Handler) func(http.Handler) http.Handler {
	return func(h http.Handler) http.Handler {
		for i := len(mws) - 1; i >= 0; i-- {
			h = mws[i](h)
		}
		return h
	}
}

// StartBackground runs the template watcher until ctx is done.
func (r *RouterWithClient) StartBackground(ctx context.Context) {
	if r.Watcher != nil {
		go r.Watcher.Run(ctx)
	}
}

// Package kernel assembles the storefront: repositories, cache, services,
// controllers, the event pipeline and the background runners.
//
// Boot builds everything from config; New takes ready-made dependencies so
// tests can run the full HTTP surface on a SQLite store.
package kernel

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/naturelovers/storefront/app/controllers"
	"github.com/naturelovers/storefront/app/jobs"
	"github.com/naturelovers/storefront/app/listeners"
	"github.com/naturelovers/storefront/app/repositories"
	"github.com/naturelovers/storefront/app/routes"
	"github.com/naturelovers/storefront/app/services"
	"github.com/naturelovers/storefront/config"
	"github.com/naturelovers/storefront/pkg/broker"
	"github.com/naturelovers/storefront/pkg/cache"
	"github.com/naturelovers/storefront/pkg/event"
	khttp "github.com/naturelovers/storefront/pkg/http"
	"github.com/naturelovers/storefront/pkg/logger"
	"github.com/naturelovers/storefront/pkg/mail"
	"github.com/naturelovers/storefront/pkg/notification"
	"github.com/naturelovers/storefront/pkg/queue"
	"github.com/naturelovers/storefront/pkg/router"
	"github.com/naturelovers/storefront/pkg/schedule"
	"github.com/naturelovers/storefront/pkg/workerpool"
	"github.com/naturelovers/storefront/pkg/ws"
)

// Deps are the externally owned pieces of an App.
type Deps struct {
	Store    repositories.Store
	Cache    cache.Cache
	Mailer   mail.Mailer
	Notifier *notification.Notifier
	// QueueDriver defaults to a memory driver.
	QueueDriver queue.Driver
	// Publishers receive relayed outbox events before the in-process bus.
	Publishers []broker.Publisher
	// SelfPingURL enables the keep-alive task.
	SelfPingURL string
	Origins     []string
	RateLimit   int
}

// App is a wired storefront.
type App struct {
	Store     repositories.Store
	Cache     cache.Cache
	Bus       *event.Bus
	Queue     *queue.Manager
	Hub       *ws.Hub
	Relay     *broker.Relay
	Scheduler *schedule.Scheduler
	Router    *router.Router

	Users *services.UserService

	mu      sync.Mutex
	closers []func(context.Context) error
}

// New wires an App around d.
func New(d Deps) *App {
	if d.Cache == nil {
		d.Cache = cache.NewMemory()
	}
	if d.QueueDriver == nil {
		d.QueueDriver = queue.NewMemoryDriver()
	}
	if d.Notifier == nil {
		d.Notifier = &notification.Notifier{Mailer: d.Mailer}
	}

	a := &App{
		Store:     d.Store,
		Cache:     d.Cache,
		Bus:       event.New(),
		Queue:     queue.New(d.QueueDriver),
		Hub:       ws.NewHub(d.Origins),
		Scheduler: schedule.New(),
	}
	a.Queue.UseFailedRecorder(d.Store.FailedJobs())

	jobDeps := &jobs.Deps{Store: d.Store, Mailer: d.Mailer, Notifier: d.Notifier, WebhookURL: config.OrderWebhook()}
	jobs.Register(a.Queue, jobDeps)
	(&listeners.Orders{Queue: a.Queue, Jobs: jobDeps, Live: a.Hub}).Register(a.Bus)

	pubs := append(broker.Fanout{}, d.Publishers...)
	pubs = append(pubs, broker.NewBus(a.Bus))
	a.Relay = broker.NewRelay(d.Store.Outbox(), pubs, workerpool.New(config.RelayWorkers()))

	a.Users = services.NewUserService(d.Store, d.Mailer)
	h := routes.Controllers{
		Health:  controllers.NewHealthController(d.Store, d.Cache),
		User:    controllers.NewUserController(a.Users),
		Cart:    controllers.NewCartController(services.NewCartService(d.Store, services.DefaultRetry)),
		Order:   controllers.NewOrderController(services.NewOrderService(d.Store, d.Cache, services.DefaultRetry)),
		Admin:   controllers.NewAdminController(services.NewAdminService(d.Store, d.Cache), a.Hub),
		Contact: controllers.NewContactController(services.NewContactService(d.Mailer, d.Notifier, config.ContactInbox())),
	}
	a.Router = buildRouter(d, func(r *router.Router) { routes.Register(r, d.Store.Users(), h) })

	a.schedule(d.SelfPingURL)
	return a
}

func (a *App) schedule(selfPing string) {
	a.Scheduler.Every(5 * time.Second).Name("outbox:relay").WithoutOverlapping().Run(a.Relay.Task)
	a.Scheduler.Every(time.Hour).Name("users:sweep-reset-tokens").Run(func(ctx context.Context) error {
		n, err := a.Users.SweepResetTokens(ctx)
		if n > 0 {
			logger.Info("schedule: expired reset tokens cleared", "count", n)
		}
		return err
	})
	if selfPing != "" && config.AppEnv() != "test" {
		a.Scheduler.Every(10 * time.Minute).Name("self:ping").WithoutOverlapping().Run(func(ctx context.Context) error {
			return ping(ctx, selfPing)
		})
	}
}

func ping(ctx context.Context, base string) error {
	resp, err := khttp.Get(base+"/ping").WithContext(ctx).Timeout(10*time.Second).Send()
	if err != nil {
		return fmt.Errorf("self ping: %w", err)
	}
	return resp.Throw()
}

// Handler is the root HTTP handler.
func (a *App) Handler() http.Handler { return a.Router.Handler() }

// Ready pings the store and the cache.
func (a *App) Ready(ctx context.Context) error {
	if err := a.Store.Ping(ctx); err != nil {
		return fmt.Errorf("store: %w", err)
	}
	if err := a.Cache.Ping(ctx); err != nil {
		return fmt.Errorf("cache: %w", err)
	}
	return nil
}

// Background runs the live-feed hub, the queue workers and the scheduler
// until ctx ends. It returns once all of them have stopped.
func (a *App) Background(ctx context.Context, workers int) {
	var wg sync.WaitGroup
	wg.Add(3)
	go func() { defer wg.Done(); a.Hub.Run(ctx) }()
	go func() { defer wg.Done(); a.Queue.Work(ctx, workers) }()
	go func() { defer wg.Done(); a.Scheduler.Start(ctx) }()
	wg.Wait()
}

// OnClose registers fn to run on Close, most recent first.
func (a *App) OnClose(fn func(context.Context) error) {
	a.mu.Lock()
	a.closers = append(a.closers, fn)
	a.mu.Unlock()
}

// Close releases everything Boot opened.
func (a *App) Close(ctx context.Context) error {
	a.mu.Lock()
	closers := a.closers
	a.closers = nil
	a.mu.Unlock()

	var errs []error
	for i := len(closers) - 1; i >= 0; i-- {
		errs = append(errs, closers[i](ctx))
	}
	return errors.Join(errs...)
}

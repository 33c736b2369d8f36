package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"time"

	"github.com/puzawa/webgo/http"
	"github.com/puzawa/webgo/telemetry"
)

func main() {
	if err := run(context.Background()); err != nil {
		log.Fatalln(err)
	}
}

func run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	var (
		bind    = flag.String("bind", "", "interface to listen on (empty binds all, IPv6 preferred)")
		port    = flag.Uint("port", 8080, "TCP port to listen on")
		threads = flag.Int("threads", 0, "worker pool size (0 = number of CPUs)")
		queue   = flag.Int("queue", http.DefaultMaxQueueSize, "max pending connections before drops")
		timeout = flag.Duration("timeout", http.DefaultSocketTimeout, "per-connection idle timeout")
		cors    = flag.Bool("cors", false, "inject permissive CORS headers")
	)
	flag.Parse()

	shutdown, err := telemetry.Setup(ctx, "webgo")
	if err != nil {
		return err
	}
	defer shutdown(context.Background())

	cfg := http.DefaultConfig()
	cfg.BindAddress = *bind
	cfg.Port = uint16(*port)
	cfg.ThreadCount = *threads
	cfg.MaxQueueSize = *queue
	cfg.SocketTimeout = *timeout
	cfg.EnableCORS = *cors

	server := http.NewServer(cfg)
	registerRoutes(server.Router(), newUserStore())

	if err := server.Start(); err != nil {
		return err
	}
	log.Printf("listening on %s:%d", cfg.BindAddress, cfg.Port)

	<-ctx.Done()
	stop()

	server.Stop()
	return nil
}

type user struct {
	ID      string    `json:"id"`
	Name    string    `json:"name"`
	Created time.Time `json:"created"`
}

// userStore is the demo collaborator. Handlers capture it at
// registration time instead of reaching for package-level state.
type userStore struct {
	users map[string]user
}

func newUserStore() *userStore {
	return &userStore{users: map[string]user{
		"123": {ID: "123", Name: "ada", Created: time.Now()},
		"42":  {ID: "42", Name: "grace", Created: time.Now()},
	}}
}

func registerRoutes(router *http.Router, store *userStore) {
	requestID := http.RequestIDMiddleware()

	router.GET("/health", func(req *http.Request, res *http.Response) {
		res.WithText("ok")
	}, requestID)

	router.GET("/api/users/:id", func(req *http.Request, res *http.Response) {
		id, _ := req.PathParam("id")
		u, ok := store.users[id]
		if !ok {
			res.WithStatus(http.StatusNotFound).WithText("no such user")
			return
		}
		res.WithJSON(u)
	}, requestID)

	router.GET("/api/users/:userId/orders/:orderId", func(req *http.Request, res *http.Response) {
		userID, _ := req.PathParam("userId")
		orderID, _ := req.PathParam("orderId")
		res.WithJSON(map[string]string{"user": userID, "order": orderID})
	}, requestID)

	router.POST("/api/echo", func(req *http.Request, res *http.Response) {
		res.Headers["Content-Type"] = req.QueryParamOr("type", "application/octet-stream")
		res.Body = req.Body
	}, requestID)

	router.GET("/static/*path", func(req *http.Request, res *http.Response) {
		path, _ := req.PathParam("path")
		res.WithText("static " + path)
	}, requestID)
}

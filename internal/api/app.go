package api

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/sirupsen/logrus"

	"github.com/timada-org/todos/internal/events"
	"github.com/timada-org/todos/internal/todo"
)

const (
	maxBodyBytes    = 1 << 20
	publishTimeout  = 10 * time.Second
	shutdownTimeout = 10 * time.Second
)

type Options struct {
	Addr      string
	Store     todo.Store
	Publisher events.Publisher
	Logger    *logrus.Logger
	Timeout   time.Duration
}

// App serves the todo routes. The injected store is shared by every
// in-flight request; pending tracks change events still being published.
type App struct {
	addr      string
	store     todo.Store
	publisher events.Publisher
	logger    *logrus.Logger
	timeout   time.Duration
	pending   sync.WaitGroup
}

func New(options Options) *App {
	app := &App{
		addr:      options.Addr,
		store:     options.Store,
		publisher: options.Publisher,
		logger:    options.Logger,
		timeout:   options.Timeout,
	}

	if app.publisher == nil {
		app.publisher = events.NewNopPublisher()
	}

	if app.logger == nil {
		app.logger = logrus.StandardLogger()
	}

	return app
}

func (app *App) Handler() http.Handler {
	router := httprouter.New()
	router.GET("/health", app.health())
	router.GET("/todos", app.list())
	router.PUT("/todos", app.create())
	router.PATCH("/todos", app.update())
	router.DELETE("/todos", app.delete())

	return app.withRequestID(app.withAccessLog(app.withTimeout(router)))
}

// Listen serves until ctx is cancelled, then drains in-flight requests.
func (app *App) Listen(ctx context.Context) error {
	ln, err := net.Listen("tcp", app.addr)
	if err != nil {
		return err
	}

	return app.Serve(ctx, ln)
}

// Serve returns once ctx is cancelled and the server has drained. After a
// clean shutdown it also waits for change events still being published.
func (app *App) Serve(ctx context.Context, ln net.Listener) error {
	server := &http.Server{
		Handler:           app.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		errc <- server.Serve(ln)
	}()

	app.logger.Infof("Listening on %s", ln.Addr())

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	app.logger.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}

	app.pending.Wait()

	return nil
}

func (app *App) health() httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
		w.WriteHeader(http.StatusOK)
	}
}

func (app *App) list() httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
		todos, err := app.store.List(r.Context())
		if err != nil {
			app.fail(w, r, err)
			return
		}

		todosB, err := json.Marshal(todos)
		if err != nil {
			app.fail(w, r, err)
			return
		}

		w.Header().Add("Content-Type", "application/json")

		if _, err := w.Write(todosB); err != nil {
			app.log(r).WithError(err).Warn("write response")
			return
		}
	}
}

func (app *App) create() httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
		input, ok := app.decode(w, r)
		if !ok {
			return
		}

		if err := app.store.Create(r.Context(), input); err != nil {
			app.fail(w, r, err)
			return
		}

		app.notify(r, events.TodoCreated, input.Title, input)
		app.success(w, r)
	}
}

func (app *App) update() httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
		input, ok := app.decode(w, r)
		if !ok {
			return
		}

		if err := app.store.Update(r.Context(), input); err != nil {
			app.fail(w, r, err)
			return
		}

		app.notify(r, events.TodoUpdated, input.Title, input)
		app.success(w, r)
	}
}

func (app *App) delete() httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
		input, ok := app.decode(w, r)
		if !ok {
			return
		}

		if err := app.store.Delete(r.Context(), input.Title); err != nil {
			app.fail(w, r, err)
			return
		}

		app.notify(r, events.TodoDeleted, input.Title, map[string]any{
			"title": input.Title,
		})
		app.success(w, r)
	}
}

// todoBody is a request body. msg is accepted as an alias of message for
// clients written against the column name.
type todoBody struct {
	Title   string `json:"title"`
	Message string `json:"message"`
	Msg     string `json:"msg"`
}

func (in todoBody) toTodo() todo.Todo {
	message := in.Message
	if message == "" {
		message = in.Msg
	}

	return todo.Todo{Title: in.Title, Message: message}
}

func (app *App) decode(w http.ResponseWriter, r *http.Request) (todo.Todo, bool) {
	var body todoBody

	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := decoder.Decode(&body); err != nil {
		app.log(r).WithError(err).Debug("decode body")
		http.Error(w, "Bad request.", http.StatusBadRequest)
		return todo.Todo{}, false
	}

	if strings.TrimSpace(body.Title) == "" {
		http.Error(w, "Bad request.", http.StatusBadRequest)
		return todo.Todo{}, false
	}

	return body.toTodo(), true
}

func (app *App) fail(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, todo.ErrDuplicateTitle):
		http.Error(w, "Conflict.", http.StatusConflict)
	case errors.Is(err, todo.ErrNotFound):
		http.Error(w, "Not found.", http.StatusNotFound)
	case errors.Is(err, todo.ErrEmptyTitle):
		http.Error(w, "Bad request.", http.StatusBadRequest)
	default:
		app.log(r).WithError(err).Error("store failure")
		http.Error(w, "Internal server error.", http.StatusInternalServerError)
	}
}

func (app *App) success(w http.ResponseWriter, r *http.Request) {
	w.Header().Add("Content-Type", "application/json")

	if _, err := w.Write([]byte("{\"success\": true}")); err != nil {
		app.log(r).WithError(err).Warn("write response")
	}
}

// notify publishes in the background: a slow or absent broker never delays
// the response, and a failed publish never fails the request.
func (app *App) notify(r *http.Request, name, title string, data any) {
	event := &events.Event{
		Topic: "todos/" + title,
		Name:  name,
		Data:  data,
	}
	entry := app.log(r)

	app.pending.Add(1)
	go func() {
		defer app.pending.Done()

		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		defer cancel()

		if err := app.publisher.Publish(ctx, event); err != nil {
			entry.WithError(err).WithField("event", event.Name).Warn("publish event")
		}
	}()
}

func (app *App) log(r *http.Request) *logrus.Entry {
	return app.logger.WithField("request_id", RequestID(r.Context()))
}

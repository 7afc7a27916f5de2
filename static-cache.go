package staticcache

import (
	"errors"
	"io"
	"math/rand"
	"net/http"
	"os"
	"path"
	"strconv"

	"github.com/always-cache/static-cache/cache"
	contentsource "github.com/always-cache/static-cache/pkg/content-source"
	mimetype "github.com/always-cache/static-cache/pkg/mime-type"
	tee "github.com/always-cache/static-cache/pkg/response-writer-tee"
	"github.com/always-cache/static-cache/rfc9211"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"
)

// DefaultMaxBodyBytes limits POST bodies when Config.MaxBodyBytes is zero.
const DefaultMaxBodyBytes = 1 << 20

// Cache is the part of cache.LRUCache the server uses.
type Cache interface {
	Get(key string) (cache.Entry, bool)
	Put(key, contentType string, content []byte, length int) error
	Replace(key, contentType string, content []byte, length int) (bool, error)
}

type Config struct {
	// In-memory cache consulted before the content source.
	Cache Cache
	// Where content is read from on a cache miss and written to on POST.
	Source contentsource.Source
	// File sent as the body of 404 responses.
	// A plain-text body is sent if empty or unreadable.
	NotFoundPage string
	// Logger to use. A console logger is used if nil.
	Logger *zerolog.Logger
	// Optional handler mounted at /metrics.
	Metrics http.Handler
	// Maximum accepted POST body size.
	MaxBodyBytes int64
	// Optional d20 roller, returning 1..20.
	Roll func() int
}

type StaticCache struct {
	cache        Cache
	source       contentsource.Source
	notFoundPage string
	maxBodyBytes int64
	roll         func() int
	log          zerolog.Logger
	router       chi.Router
	writes       *writeGenerations
}

// New creates the static file server.
func New(config Config) (*StaticCache, error) {
	if config.Cache == nil {
		return nil, errors.New("static-cache: cache is required")
	}
	if config.Source == nil {
		return nil, errors.New("static-cache: content source is required")
	}

	// use console logger if not specified in config
	var logger zerolog.Logger
	if config.Logger == nil {
		logger = zerolog.New(zerolog.NewConsoleWriter()).With().Timestamp().Logger()
	} else {
		logger = *config.Logger
	}

	s := &StaticCache{
		cache:        config.Cache,
		source:       config.Source,
		notFoundPage: config.NotFoundPage,
		maxBodyBytes: config.MaxBodyBytes,
		roll:         config.Roll,
		log:          logger,
		writes:       newWriteGenerations(),
	}
	if s.maxBodyBytes <= 0 {
		s.maxBodyBytes = DefaultMaxBodyBytes
	}
	if s.roll == nil {
		s.roll = func() int { return rand.Intn(20) + 1 }
	}

	r := chi.NewRouter()
	r.Use(hlog.NewHandler(s.log))
	r.Use(requestID)
	r.Use(logRequests)
	r.Use(s.recover)

	r.Get("/d20", s.getD20)
	if config.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", config.Metrics)
	}
	r.Get("/*", s.getFile)
	r.Post("/*", s.saveFile)
	s.router = r

	return s, nil
}

// ServeHTTP implements the http.Handler interface.
func (s *StaticCache) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *StaticCache) getD20(w http.ResponseWriter, r *http.Request) {
	send(w, http.StatusOK, "text/plain", []byte(strconv.Itoa(s.roll())))
}

// getFile serves the request path from the cache, falling back to the source.
// The raw request path is the cache key.
func (s *StaticCache) getFile(w http.ResponseWriter, r *http.Request) {
	key := r.URL.Path
	log := hlog.FromRequest(r)
	cs := rfc9211.CacheStatus{}

	if entry, ok := s.cache.Get(key); ok {
		cs.Hit()
		w.Header().Set("Cache-Status", cs.String())
		send(w, http.StatusOK, entry.ContentType, entry.Content)
		return
	}

	cs.Forward(rfc9211.FwdReasonUriMiss)
	seen := s.writes.current(key)
	file, err := s.source.Read(key)
	if errors.Is(err, contentsource.ErrNotFound) {
		w.Header().Set("Cache-Status", cs.String())
		s.sendNotFound(w, r)
		return
	} else if err != nil {
		log.Error().Err(err).Str("key", key).Msg("Could not read content")
		w.Header().Set("Cache-Status", cs.String())
		send(w, http.StatusInternalServerError, "text/plain", []byte("Internal Server Error"))
		return
	}

	contentType := mimetype.Get(file.Name)
	// a POST to key since the read means file may already be stale
	filled := s.writes.fillIfUnchanged(key, seen, func() {
		if err := s.cache.Put(key, contentType, file.Body, len(file.Body)); err != nil {
			log.Error().Err(err).Str("key", key).Msg("Could not store in cache")
		} else {
			cs.Stored = true
		}
	})
	if !filled {
		log.Trace().Str("key", key).Msg("Content changed while reading, not caching")
	}
	w.Header().Set("Cache-Status", cs.String())
	send(w, http.StatusOK, contentType, file.Body)
}

// saveFile writes the request body to the source under the request path.
// A cached copy of that path is replaced so it is not served stale;
// an uncached path stays uncached.
func (s *StaticCache) saveFile(w http.ResponseWriter, r *http.Request) {
	key := r.URL.Path
	log := hlog.FromRequest(r)

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.maxBodyBytes))
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		log.Warn().Int64("limit", tooLarge.Limit).Msg("Request body too large")
		send(w, http.StatusRequestEntityTooLarge, "text/plain", []byte("Request body too large."))
		return
	} else if err != nil {
		log.Error().Err(err).Msg("Could not read request body")
		send(w, http.StatusBadRequest, "text/plain", []byte("Could not read request body."))
		return
	}

	if err := s.source.Write(key, body); err != nil {
		log.Error().Err(err).Str("key", key).Msg("Could not save file")
		send(w, http.StatusInternalServerError, "text/plain", []byte("Creation failed."))
		return
	}

	s.writes.written(key, func() {
		if _, err := s.cache.Replace(key, mimetype.Get(path.Base(key)), body, len(body)); err != nil {
			log.Error().Err(err).Str("key", key).Msg("Could not refresh cache")
		}
	})
	send(w, http.StatusCreated, "text/plain", []byte("Created file"))
}

func (s *StaticCache) sendNotFound(w http.ResponseWriter, r *http.Request) {
	if s.notFoundPage != "" {
		body, err := os.ReadFile(s.notFoundPage)
		if err == nil {
			send(w, http.StatusNotFound, mimetype.Get(s.notFoundPage), body)
			return
		}
		hlog.FromRequest(r).Warn().Err(err).Str("page", s.notFoundPage).Msg("Cannot read 404 page")
	}
	send(w, http.StatusNotFound, "text/plain", []byte("404 Not Found"))
}

// recover recovers from panics in handlers.
// A 500 is sent only if the handler had not started its response.
func (s *StaticCache) recover(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := tee.NewResponseRecorder(w)
		defer func() {
			if err := recover(); err != nil {
				if err == http.ErrAbortHandler {
					panic(err)
				}
				hlog.FromRequest(r).WithLevel(zerolog.PanicLevel).
					Interface("error", err).
					Bool("responseStarted", rec.Written()).
					Msg("Panic in handler")
				if !rec.Written() {
					send(w, http.StatusInternalServerError, "text/plain", []byte("Internal Server Error"))
				}
			}
		}()
		next.ServeHTTP(rec, r)
	})
}

func send(w http.ResponseWriter, status int, contentType string, body []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(body)))
	w.WriteHeader(status)
	w.Write(body)
}

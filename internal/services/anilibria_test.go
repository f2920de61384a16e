package services

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/desertthunder/librix/internal/shared"
	tu "github.com/desertthunder/librix/internal/testing"
)

const listResponse = `{
	"status": true,
	"data": {
		"items": [
			{
				"id": 101,
				"code": "shingeki",
				"names": ["Атака титанов", "Shingeki no Kyojin"],
				"series": "1-25",
				"poster": "/upload/release/350x500/101.jpg",
				"favorite": {"rating": 42, "added": false},
				"last": "1600000000",
				"status": "Завершен",
				"type": "ТВ (25 эп.)",
				"genres": ["экшен"],
				"voices": ["Ancord"],
				"year": "2013",
				"season": "весна",
				"description": "desc",
				"blockedInfo": {"blocked": false, "reason": ""},
				"playlist": [{"id": 1, "title": "Серия 1", "sd": "sd1", "hd": "hd1"}],
				"torrents": [{"id": 9, "hash": "abc", "quality": "HDTVRip 720p", "series": "1-25", "size": 1048576}]
			}
		]
	}
}`

func newTestService(t *testing.T, handler http.HandlerFunc, token string) (*AnilibriaService, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewAnilibriaService(ClientOptions{BaseURL: server.URL, SessionToken: token}), server
}

func TestAnilibriaService(t *testing.T) {
	ctx := context.Background()

	t.Run("New", func(t *testing.T) {
		t.Run("Defaults", func(t *testing.T) {
			srv := NewAnilibriaService(ClientOptions{})

			if srv.baseURL != DefaultBaseURL {
				t.Errorf("expected base URL %s, got %s", DefaultBaseURL, srv.baseURL)
			}
			if srv.userAgent != DefaultUserAgent {
				t.Errorf("expected user agent %s, got %s", DefaultUserAgent, srv.userAgent)
			}
			if srv.Authorized() {
				t.Error("expected client without token to be unauthorized")
			}
			if srv.limiter != nil {
				t.Error("expected no limiter without a rate limit")
			}
		})

		t.Run("Trailing slash and token", func(t *testing.T) {
			srv := NewAnilibriaService(ClientOptions{BaseURL: "http://example.com/", SessionToken: "tok", RateLimit: 2})

			if srv.baseURL != "http://example.com" {
				t.Errorf("expected trimmed base URL, got %s", srv.baseURL)
			}
			if !srv.Authorized() {
				t.Error("expected client with token to be authorized")
			}
			if srv.limiter == nil {
				t.Error("expected limiter to be configured")
			}
		})

		t.Run("From Config", func(t *testing.T) {
			cfg := shared.DefaultConfig()
			cfg.API.BaseURL = "http://config.test"
			cfg.Credentials.SessionToken = "secret"

			srv := NewAnilibriaServiceFromConfig(cfg)
			if srv.baseURL != "http://config.test" || !srv.Authorized() {
				t.Errorf("expected config to be applied, got %s authorized=%v", srv.baseURL, srv.Authorized())
			}
			if srv.httpClient.Timeout != cfg.API.Timeout() {
				t.Errorf("expected timeout %v, got %v", cfg.API.Timeout(), srv.httpClient.Timeout)
			}
		})
	})

	t.Run("FetchPage", func(t *testing.T) {
		t.Run("Successful Request", func(t *testing.T) {
			srv, _ := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodPost {
					t.Errorf("expected POST method, got %s", r.Method)
				}
				if r.URL.Path != apiPath {
					t.Errorf("expected path %s, got %s", apiPath, r.URL.Path)
				}
				if ct := r.Header.Get("Content-Type"); ct != "application/x-www-form-urlencoded" {
					t.Errorf("expected form content type, got %s", ct)
				}
				if ua := r.Header.Get("User-Agent"); ua != DefaultUserAgent {
					t.Errorf("expected user agent %s, got %s", DefaultUserAgent, ua)
				}
				if err := r.ParseForm(); err != nil {
					t.Fatalf("failed to parse form: %v", err)
				}
				if r.PostForm.Get("query") != "list" || r.PostForm.Get("page") != "1" || r.PostForm.Get("perPage") != "2000" {
					t.Errorf("unexpected form %v", r.PostForm)
				}
				io.WriteString(w, listResponse)
			}, "")

			records, err := srv.FetchPage(ctx, 1, 2000)
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if len(records) != 1 {
				t.Fatalf("expected 1 record, got %d", len(records))
			}

			rec := records[0]
			if rec.ID != 101 || rec.Names[0] != "Атака титанов" {
				t.Errorf("unexpected record %+v", rec)
			}
			if rec.Rating() != 42 || rec.Timestamp() != 1600000000 {
				t.Errorf("expected rating 42 and timestamp, got %d %d", rec.Rating(), rec.Timestamp())
			}
			if len(rec.Playlist) != 1 || rec.Playlist[0].HD != "hd1" {
				t.Errorf("unexpected playlist %+v", rec.Playlist)
			}
			if len(rec.Torrents) != 1 || rec.Torrents[0].Size != 1048576 {
				t.Errorf("unexpected torrents %+v", rec.Torrents)
			}
		})

		t.Run("Empty Page", func(t *testing.T) {
			srv, _ := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
				io.WriteString(w, `{"status":true,"data":{"items":[]}}`)
			}, "")

			records, err := srv.FetchPage(ctx, 5, 10)
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if len(records) != 0 {
				t.Errorf("expected empty page, got %d", len(records))
			}
		})

		t.Run("Invalid Arguments", func(t *testing.T) {
			srv := NewAnilibriaService(ClientOptions{})
			if _, err := srv.FetchPage(ctx, 0, 10); !errors.Is(err, shared.ErrInvalidArgument) {
				t.Errorf("expected ErrInvalidArgument for page 0, got %v", err)
			}
			if _, err := srv.FetchPage(ctx, 1, 0); !errors.Is(err, shared.ErrInvalidArgument) {
				t.Errorf("expected ErrInvalidArgument for page size 0, got %v", err)
			}
		})

		tc := []struct {
			name    string
			status  int
			body    string
			message string
		}{
			{"Status False", http.StatusOK, `{"status":false,"error":{"code":500,"message":"db down"}}`, "db down"},
			{"Status False Without Error", http.StatusOK, `{"status":false}`, "unsuccessful"},
			{"Server Error", http.StatusInternalServerError, `oops`, "status 500"},
			{"Invalid JSON", http.StatusOK, `{not json`, "failed to decode"},
		}

		for _, tt := range tc {
			t.Run(tt.name, func(t *testing.T) {
				srv, _ := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
					w.WriteHeader(tt.status)
					io.WriteString(w, tt.body)
				}, "")

				_, err := srv.FetchPage(ctx, 1, 10)
				if !errors.Is(err, shared.ErrAPIRequest) {
					t.Fatalf("expected ErrAPIRequest, got %v", err)
				}
				if !strings.Contains(err.Error(), tt.message) {
					t.Errorf("expected error to mention %q, got %v", tt.message, err)
				}
			})
		}

		t.Run("Transport Error", func(t *testing.T) {
			srv := NewAnilibriaService(ClientOptions{
				BaseURL:    "http://example.com",
				HTTPClient: &http.Client{Transport: tu.NewMockRoundTripper(nil, errors.New("connection refused"))},
			})

			if _, err := srv.FetchPage(ctx, 1, 10); !errors.Is(err, shared.ErrAPIRequest) {
				t.Errorf("expected ErrAPIRequest, got %v", err)
			}
		})

		t.Run("Body Read Error", func(t *testing.T) {
			resp := &http.Response{StatusCode: http.StatusOK, Body: &tu.FCloser{}, Header: http.Header{}}
			srv := NewAnilibriaService(ClientOptions{
				BaseURL:    "http://example.com",
				HTTPClient: &http.Client{Transport: tu.NewMockRoundTripper(resp, nil)},
			})

			if _, err := srv.FetchPage(ctx, 1, 10); !errors.Is(err, shared.ErrAPIRequest) {
				t.Errorf("expected ErrAPIRequest, got %v", err)
			}
		})

		t.Run("Canceled Context", func(t *testing.T) {
			srv, _ := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
				io.WriteString(w, listResponse)
			}, "")

			canceled, cancel := context.WithCancel(ctx)
			cancel()

			if _, err := srv.FetchPage(canceled, 1, 10); !errors.Is(err, context.Canceled) {
				t.Errorf("expected context.Canceled, got %v", err)
			}
		})

		t.Run("Timeout", func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				time.Sleep(200 * time.Millisecond)
				io.WriteString(w, listResponse)
			}))
			defer server.Close()

			srv := NewAnilibriaService(ClientOptions{BaseURL: server.URL, Timeout: 20 * time.Millisecond})
			_, err := srv.FetchPage(ctx, 1, 10)
			if !errors.Is(err, shared.ErrAPIRequest) || !errors.Is(err, shared.ErrTimeout) {
				t.Errorf("expected ErrAPIRequest and ErrTimeout on timeout, got %v", err)
			}
		})
	})

	t.Run("FetchFavorites", func(t *testing.T) {
		t.Run("Not Authorized", func(t *testing.T) {
			srv := NewAnilibriaService(ClientOptions{})
			if _, err := srv.FetchFavorites(ctx); !errors.Is(err, shared.ErrNotAuthenticated) {
				t.Errorf("expected ErrNotAuthenticated, got %v", err)
			}
		})

		t.Run("Session Is Sent", func(t *testing.T) {
			srv, _ := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
				if auth := r.Header.Get("Authorization"); auth != "Bearer tok" {
					t.Errorf("expected bearer token, got %q", auth)
				}
				cookie, err := r.Cookie(sessionCookie)
				if err != nil || cookie.Value != "tok" {
					t.Errorf("expected session cookie, got %v, %v", cookie, err)
				}
				r.ParseForm()
				if r.PostForm.Get("query") != "favorites" {
					t.Errorf("expected favorites query, got %s", r.PostForm.Get("query"))
				}
				io.WriteString(w, listResponse)
			}, "tok")

			favorites, err := srv.FetchFavorites(ctx)
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if len(favorites) != 1 || favorites[0].ReleaseID != 101 || favorites[0].Rating != 42 {
				t.Errorf("unexpected favorites %+v", favorites)
			}
		})
	})

	t.Run("FetchCurrentUser", func(t *testing.T) {
		t.Run("Success", func(t *testing.T) {
			srv, _ := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
				io.WriteString(w, `{"status":true,"data":{"id":7,"login":"neko","avatar":"/a.jpg"}}`)
			}, "tok")

			user, err := srv.FetchCurrentUser(ctx)
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if user.ID != 7 || user.Login != "neko" {
				t.Errorf("unexpected user %+v", user)
			}
		})

		t.Run("Missing Id", func(t *testing.T) {
			srv, _ := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
				io.WriteString(w, `{"status":true,"data":{}}`)
			}, "tok")

			if _, err := srv.FetchCurrentUser(ctx); !errors.Is(err, shared.ErrAPIRequest) {
				t.Errorf("expected ErrAPIRequest, got %v", err)
			}
		})

		t.Run("Not Authorized", func(t *testing.T) {
			if _, err := NewAnilibriaService(ClientOptions{}).FetchCurrentUser(ctx); !errors.Is(err, shared.ErrNotAuthenticated) {
				t.Errorf("expected ErrNotAuthenticated, got %v", err)
			}
		})
	})

	t.Run("DownloadPoster", func(t *testing.T) {
		t.Run("Relative Path", func(t *testing.T) {
			srv, _ := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/upload/101.jpg" {
					t.Errorf("expected resolved path, got %s", r.URL.Path)
				}
				w.Write([]byte("image"))
			}, "")

			data, err := srv.DownloadPoster(ctx, "upload/101.jpg")
			if err != nil || string(data) != "image" {
				t.Errorf("expected image, got %q, %v", data, err)
			}
		})

		t.Run("Not Found", func(t *testing.T) {
			srv, _ := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusNotFound)
			}, "")

			if _, err := srv.DownloadPoster(ctx, "/missing.jpg"); !errors.Is(err, shared.ErrAPIRequest) {
				t.Errorf("expected ErrAPIRequest, got %v", err)
			}
		})

		t.Run("Empty Path", func(t *testing.T) {
			if _, err := NewAnilibriaService(ClientOptions{}).DownloadPoster(ctx, ""); !errors.Is(err, shared.ErrInvalidArgument) {
				t.Errorf("expected ErrInvalidArgument, got %v", err)
			}
		})
	})

	t.Run("Rate Limit", func(t *testing.T) {
		var calls int
		srv, server := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
			calls++
			io.WriteString(w, `{"status":true,"data":{"items":[]}}`)
		}, "")
		srv = NewAnilibriaService(ClientOptions{BaseURL: server.URL, RateLimit: 20})

		start := time.Now()
		for range 3 {
			if _, err := srv.FetchPage(ctx, 1, 1); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		}
		if elapsed := time.Since(start); elapsed < 80*time.Millisecond {
			t.Errorf("expected limiter to pace requests, took %v", elapsed)
		}
		if calls != 3 {
			t.Errorf("expected 3 calls, got %d", calls)
		}
	})
}

func TestNewSessionClient(t *testing.T) {
	t.Run("Empty Token", func(t *testing.T) {
		base := &http.Client{}
		if NewSessionClient(base, "") != base {
			t.Error("expected base client to be returned unchanged")
		}
	})

	t.Run("Nil Base", func(t *testing.T) {
		if NewSessionClient(nil, "tok") == nil {
			t.Error("expected a client")
		}
	})
}

// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

//go:build integration

package web_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention

	"github.com/holomush/userauth/internal/auth"
	"github.com/holomush/userauth/internal/auth/postgres"
	"github.com/holomush/userauth/internal/authn"
	"github.com/holomush/userauth/internal/config"
	"github.com/holomush/userauth/internal/web"
)

type harness struct {
	server *web.Server
	client *http.Client
	base   string
}

func startServer(kind authn.Kind) *harness {
	ctx := context.Background()
	_, err := pool.Exec(ctx, "TRUNCATE users")
	Expect(err).NotTo(HaveOccurred())

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	users := postgres.NewUserStore(pool)
	svc, err := auth.NewService(users, auth.NewArgon2idHasher(), auth.WithLogger(logger))
	Expect(err).NotTo(HaveOccurred())

	authenticator, err := authn.New(kind, authn.Deps{
		CookieName: "session_id",
		Verifier:   svc,
		Sessions:   auth.NewTableSessionStore(users),
		Users:      users,
		Logger:     logger,
	})
	Expect(err).NotTo(HaveOccurred())

	s, err := web.NewServer(svc,
		web.WithAuthenticator(authenticator, string(kind)),
		web.WithExemptions(authn.MustCompileExemptions(config.DefaultExcludedPaths)),
		web.WithLogger(logger),
	)
	Expect(err).NotTo(HaveOccurred())
	_, err = s.Start("127.0.0.1:0")
	Expect(err).NotTo(HaveOccurred())
	DeferCleanup(func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		Expect(s.Stop(stopCtx)).To(Succeed())
	})

	jar, err := cookiejar.New(nil)
	Expect(err).NotTo(HaveOccurred())
	return &harness{
		server: s,
		base:   "http://" + s.Addr(),
		client: &http.Client{
			Jar:       jar,
			Transport: &http.Transport{DisableKeepAlives: true},
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

func (h *harness) do(method, path string, form url.Values) (int, map[string]any) {
	req, err := http.NewRequest(method, h.base+path, strings.NewReader(form.Encode()))
	Expect(err).NotTo(HaveOccurred())
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := h.client.Do(req)
	Expect(err).NotTo(HaveOccurred())
	defer func() { _ = resp.Body.Close() }()

	var body map[string]any
	if strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		Expect(json.NewDecoder(resp.Body).Decode(&body)).To(Succeed())
	}
	return resp.StatusCode, body
}

func creds(email, password string) url.Values {
	return url.Values{"email": {email}, "password": {password}}
}

var _ = Describe("Account lifecycle", func() {
	var h *harness

	BeforeEach(func() {
		h = startServer(authn.KindNone)
	})

	It("registers, logs in, resets the password and logs out", func() {
		status, body := h.do(http.MethodPost, "/users", creds("alice@example.com", "first"))
		Expect(status).To(Equal(http.StatusOK))
		Expect(body).To(HaveKeyWithValue("message", "user created"))

		status, _ = h.do(http.MethodPost, "/users", creds("alice@example.com", "other"))
		Expect(status).To(Equal(http.StatusBadRequest))

		status, _ = h.do(http.MethodPost, "/sessions", creds("alice@example.com", "wrong"))
		Expect(status).To(Equal(http.StatusUnauthorized))

		status, _ = h.do(http.MethodPost, "/sessions", creds("alice@example.com", "first"))
		Expect(status).To(Equal(http.StatusOK))

		status, body = h.do(http.MethodGet, "/profile", nil)
		Expect(status).To(Equal(http.StatusOK))
		Expect(body).To(HaveKeyWithValue("email", "alice@example.com"))

		status, body = h.do(http.MethodPost, "/reset_password", url.Values{"email": {"alice@example.com"}})
		Expect(status).To(Equal(http.StatusOK))
		token, _ := body["reset_token"].(string)
		Expect(token).NotTo(BeEmpty())

		status, _ = h.do(http.MethodPut, "/reset_password", url.Values{
			"email":        {"alice@example.com"},
			"reset_token":  {token},
			"new_password": {"second"},
		})
		Expect(status).To(Equal(http.StatusOK))

		status, _ = h.do(http.MethodPut, "/reset_password", url.Values{
			"reset_token":  {token},
			"new_password": {"third"},
		})
		Expect(status).To(Equal(http.StatusForbidden), "tokens are single use")

		status, _ = h.do(http.MethodDelete, "/sessions", nil)
		Expect(status).To(Equal(http.StatusFound))

		status, _ = h.do(http.MethodGet, "/profile", nil)
		Expect(status).To(Equal(http.StatusForbidden))

		status, _ = h.do(http.MethodPost, "/sessions", creds("alice@example.com", "first"))
		Expect(status).To(Equal(http.StatusUnauthorized))
		status, _ = h.do(http.MethodPost, "/sessions", creds("alice@example.com", "second"))
		Expect(status).To(Equal(http.StatusOK))
	})

	It("registers each email exactly once under concurrency", func() {
		const workers = 8
		var wg sync.WaitGroup
		statuses := make(chan int, workers)
		for range workers {
			wg.Add(1)
			go func() {
				defer GinkgoRecover()
				defer wg.Done()
				status, _ := h.do(http.MethodPost, "/users", creds("race@example.com", "pw"))
				statuses <- status
			}()
		}
		wg.Wait()
		close(statuses)

		counts := map[int]int{}
		for s := range statuses {
			counts[s]++
		}
		Expect(counts[http.StatusOK]).To(Equal(1))
		Expect(counts[http.StatusBadRequest]).To(Equal(workers - 1))
	})
})

var _ = Describe("Session-authenticated API", func() {
	var h *harness

	BeforeEach(func() {
		h = startServer(authn.KindSession)
		status, _ := h.do(http.MethodPost, "/users", creds("bob@example.com", "pw"))
		Expect(status).To(Equal(http.StatusOK))
	})

	It("guards the API until an API session exists", func() {
		status, _ := h.do(http.MethodGet, "/api/v1/users/me", nil)
		Expect(status).To(Equal(http.StatusUnauthorized))

		status, _ = h.do(http.MethodPost, "/api/v1/auth_session/login", creds("bob@example.com", "pw"))
		Expect(status).To(Equal(http.StatusOK))

		status, body := h.do(http.MethodGet, "/api/v1/users/me", nil)
		Expect(status).To(Equal(http.StatusOK))
		Expect(body).To(HaveKeyWithValue("email", "bob@example.com"))

		status, _ = h.do(http.MethodDelete, "/api/v1/auth_session/logout", nil)
		Expect(status).To(Equal(http.StatusOK))

		status, _ = h.do(http.MethodGet, "/api/v1/users/me", nil)
		Expect(status).To(Equal(http.StatusUnauthorized))
	})

	It("leaves exempt paths open", func() {
		status, body := h.do(http.MethodGet, "/api/v1/status", nil)
		Expect(status).To(Equal(http.StatusOK))
		Expect(body).To(HaveKeyWithValue("status", "OK"))
	})
})

// README: Bench cases: environment, schema, fare API, ticket issuance and concurrency checks.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"regexp"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"busticket/internal/infra"
	"busticket/internal/modules/ticket"
	"busticket/migrations"
)

const (
	statusPass = "PASS"
	statusFail = "FAIL"
	statusSkip = "SKIP"
)

type Runner struct {
	cfg   Config
	httpc *http.Client
	db    *pgxpool.Pool
	redis *redis.Client
}

type Result struct {
	Status  string
	Latency time.Duration
	Note    string
}

type TestCase struct {
	Name string
	Run  func(ctx context.Context, r *Runner) Result
}

func NewRunner(cfg Config) *Runner {
	return &Runner{
		cfg:   cfg,
		httpc: &http.Client{Timeout: 10 * time.Second},
	}
}

func (r *Runner) RunAll(ctx context.Context) []Result {
	if r.cfg.DSN != "" {
		if db, err := pgxpool.New(ctx, r.cfg.DSN); err == nil {
			r.db = db
		}
	}
	if r.cfg.RedisAddr != "" {
		r.redis = redis.NewClient(&redis.Options{Addr: r.cfg.RedisAddr})
	}

	tests := r.cases()
	results := make([]Result, 0, len(tests))
	for _, tc := range tests {
		res := tc.Run(ctx, r)
		results = append(results, res)
		fmt.Printf("%-5s %s", res.Status, tc.Name)
		if res.Latency > 0 {
			fmt.Printf(" (%s)", res.Latency)
		}
		if res.Note != "" {
			fmt.Printf(" - %s", res.Note)
		}
		fmt.Println()
	}

	if r.db != nil {
		r.db.Close()
	}
	if r.redis != nil {
		_ = r.redis.Close()
	}
	return results
}

func (r *Runner) cases() []TestCase {
	base := r.cfg.BaseURL
	route := r.cfg.RouteID
	return []TestCase{
		{Name: "Env: Postgres connect", Run: func(ctx context.Context, r *Runner) Result {
			if r.db == nil {
				return Result{Status: statusFail, Note: "db not configured"}
			}
			ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
			defer cancel()
			if err := r.db.Ping(ctx); err != nil {
				return Result{Status: statusFail, Note: err.Error()}
			}
			return Result{Status: statusPass}
		}},
		{Name: "Env: Redis connect", Run: func(ctx context.Context, r *Runner) Result {
			if r.redis == nil {
				return Result{Status: statusFail, Note: "redis not configured"}
			}
			ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
			defer cancel()
			if err := r.redis.Ping(ctx).Err(); err != nil {
				return Result{Status: statusFail, Note: err.Error()}
			}
			return Result{Status: statusPass}
		}},
		{Name: "Migration: apply (optional)", Run: func(ctx context.Context, r *Runner) Result {
			if !r.cfg.ApplyMigration {
				return Result{Status: statusSkip, Note: "apply-migration=false"}
			}
			if r.db == nil {
				return Result{Status: statusFail, Note: "db not configured"}
			}
			if err := infra.Migrate(ctx, r.db, migrations.FS); err != nil {
				return Result{Status: statusFail, Note: err.Error()}
			}
			return Result{Status: statusPass}
		}},
		{Name: "Migration: tables exist", Run: checkTables},
		{Name: "API: health", Run: func(ctx context.Context, r *Runner) Result {
			return r.expect(ctx, http.MethodGet, base+"/health", nil, "", http.StatusOK)
		}},
		{Name: "API: unauthenticated request -> 401", Run: func(ctx context.Context, r *Runner) Result {
			return r.expect(ctx, http.MethodGet, base+"/api/routes", nil, "", http.StatusUnauthorized)
		}},

		r.apiCase("Fare: forward quote", http.MethodPost, base+"/api/fares/calculate", map[string]any{
			"routeId": route, "fromSection": 0, "toSection": 2,
		}, http.StatusOK),
		r.apiCase("Fare: return quote with display numbers", http.MethodPost, base+"/api/fares/calculate", map[string]any{
			"routeId": route, "fromSection": 2, "toSection": 0, "direction": "return",
		}, http.StatusOK),
		r.apiCase("Fare: backward travel -> 400", http.MethodPost, base+"/api/fares/calculate", map[string]any{
			"routeId": route, "fromSection": 0, "toSection": 2, "direction": "return",
		}, http.StatusBadRequest),
		r.apiCase("Fare: negative section -> 400", http.MethodPost, base+"/api/fares/calculate", map[string]any{
			"routeId": route, "fromSection": -1, "toSection": 2,
		}, http.StatusBadRequest),
		r.apiCase("Fare: unknown category -> 400", http.MethodPost, base+"/api/fares/calculate", map[string]any{
			"routeId": route, "fromSection": 0, "toSection": 2, "category": "first-class",
		}, http.StatusBadRequest),
		r.apiCase("Fare: matrix", http.MethodGet, base+"/api/fares/matrix/"+route, nil, http.StatusOK),

		{Name: "Concurrency: ticket numbers are unique", Run: concurrentSequence},
		{Name: "Concurrency: double cancel succeeds once", Run: concurrentCancel},
		{Name: "Perf: fare quote throughput", Run: func(ctx context.Context, r *Runner) Result {
			if r.cfg.Token == "" || route == "" {
				return Result{Status: statusSkip, Note: "token and route required"}
			}
			return perfLoad(ctx, r, base+"/api/fares/calculate", map[string]any{
				"routeId": route, "fromSection": 0, "toSection": 1,
			})
		}},
	}
}

// apiCase skips unless a bearer token and route are configured.
func (r *Runner) apiCase(name, method, url string, body any, want int) TestCase {
	return TestCase{Name: name, Run: func(ctx context.Context, r *Runner) Result {
		if r.cfg.Token == "" || r.cfg.RouteID == "" {
			return Result{Status: statusSkip, Note: "token and route required"}
		}
		return r.expect(ctx, method, url, body, r.cfg.Token, want)
	}}
}

func (r *Runner) do(ctx context.Context, method, url string, body any, token string) (*http.Response, []byte, time.Duration, error) {
	var reader io.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		reader = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, nil, 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	start := time.Now()
	resp, err := r.httpc.Do(req)
	if err != nil {
		return nil, nil, 0, err
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	return resp, raw, time.Since(start), err
}

func (r *Runner) expect(ctx context.Context, method, url string, body any, token string, want int) Result {
	resp, _, latency, err := r.do(ctx, method, url, body, token)
	if err != nil {
		return Result{Status: statusFail, Note: err.Error()}
	}
	status := statusFail
	if resp.StatusCode == want {
		status = statusPass
	}
	return Result{Status: status, Latency: latency, Note: fmt.Sprintf("status=%d", resp.StatusCode)}
}

var createTable = regexp.MustCompile(`(?i)create\s+table\s+if\s+not\s+exists\s+([a-zA-Z0-9_]+)`)

func checkTables(ctx context.Context, r *Runner) Result {
	if r.db == nil {
		return Result{Status: statusFail, Note: "db not configured"}
	}
	files, err := fs.Glob(migrations.FS, "*.sql")
	if err != nil {
		return Result{Status: statusFail, Note: err.Error()}
	}
	for _, name := range files {
		b, err := fs.ReadFile(migrations.FS, name)
		if err != nil {
			return Result{Status: statusFail, Note: err.Error()}
		}
		for _, m := range createTable.FindAllStringSubmatch(string(b), -1) {
			var exists bool
			err := r.db.QueryRow(ctx,
				"SELECT EXISTS (SELECT 1 FROM information_schema.tables WHERE table_name=$1)",
				m[1],
			).Scan(&exists)
			if err != nil {
				return Result{Status: statusFail, Note: err.Error()}
			}
			if !exists {
				return Result{Status: statusFail, Note: "missing table: " + m[1]}
			}
		}
	}
	return Result{Status: statusPass}
}

// concurrentSequence draws numbers for a fixed past day, whose counter expires on its own.
func concurrentSequence(ctx context.Context, r *Runner) Result {
	if r.redis == nil {
		return Result{Status: statusSkip, Note: "redis not configured"}
	}
	seq := ticket.NewRedisSequence(r.redis)
	day := time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)

	var mu sync.Mutex
	seen := make(map[string]bool)
	var failures int
	var wg sync.WaitGroup
	for i := 0; i < r.cfg.Concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			n, err := seq.Next(ctx, day)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failures++
				return
			}
			seen[n] = true
		}()
	}
	wg.Wait()

	if failures > 0 {
		return Result{Status: statusFail, Note: fmt.Sprintf("errors=%d", failures)}
	}
	if len(seen) != r.cfg.Concurrency {
		return Result{Status: statusFail, Note: fmt.Sprintf("unique=%d of %d", len(seen), r.cfg.Concurrency)}
	}
	return Result{Status: statusPass, Note: fmt.Sprintf("unique=%d", len(seen))}
}

// concurrentCancel issues one ticket as the configured conductor and cancels it from many goroutines.
func concurrentCancel(ctx context.Context, r *Runner) Result {
	if r.cfg.Token == "" || r.cfg.RouteID == "" || r.cfg.BusNumber == "" {
		return Result{Status: statusSkip, Note: "token, route and bus required"}
	}
	resp, raw, _, err := r.do(ctx, http.MethodPost, r.cfg.BaseURL+"/api/tickets", map[string]any{
		"busNumber": r.cfg.BusNumber, "routeId": r.cfg.RouteID, "fromSection": 0, "toSection": 1,
	}, r.cfg.Token)
	if err != nil {
		return Result{Status: statusFail, Note: err.Error()}
	}
	if resp.StatusCode != http.StatusCreated {
		return Result{Status: statusFail, Note: fmt.Sprintf("issue status=%d", resp.StatusCode)}
	}
	var issued struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(raw, &issued); err != nil {
		return Result{Status: statusFail, Note: err.Error()}
	}

	url := r.cfg.BaseURL + "/api/tickets/" + issued.ID + "/cancel"
	var mu sync.Mutex
	succ, conflict := 0, 0
	var wg sync.WaitGroup
	for i := 0; i < r.cfg.Concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			resp, _, _, err := r.do(ctx, http.MethodPatch, url, nil, r.cfg.Token)
			if err != nil {
				return
			}
			mu.Lock()
			defer mu.Unlock()
			switch resp.StatusCode {
			case http.StatusOK:
				succ++
			case http.StatusConflict:
				conflict++
			}
		}()
	}
	wg.Wait()

	note := fmt.Sprintf("success=%d conflict=%d", succ, conflict)
	if succ == 1 && conflict == r.cfg.Concurrency-1 {
		return Result{Status: statusPass, Note: note}
	}
	return Result{Status: statusFail, Note: note}
}

func perfLoad(ctx context.Context, r *Runner, url string, payload any) Result {
	end := time.Now().Add(r.cfg.Duration)
	var count, errCount int64
	var mu sync.Mutex
	var wg sync.WaitGroup

	for i := 0; i < r.cfg.Concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for time.Now().Before(end) && ctx.Err() == nil {
				resp, _, _, err := r.do(ctx, http.MethodPost, url, payload, r.cfg.Token)
				mu.Lock()
				if err != nil || resp.StatusCode != http.StatusOK {
					errCount++
				} else {
					count++
				}
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if count == 0 {
		return Result{Status: statusFail, Note: "no requests completed"}
	}
	rps := float64(count) / r.cfg.Duration.Seconds()
	return Result{Status: statusPass, Note: fmt.Sprintf("rps=%.1f errors=%d", rps, errCount)}
}

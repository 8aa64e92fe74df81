// Package fakebackend is an in-process stand-in for the agency's REST backend,
// built on gin so tests can drive the console against realistic payloads.
package fakebackend

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

// Account is a backend operator able to log in
type Account struct {
	Identifier string
	Secret     string
	Token      string
	User       map[string]any // nil omits "user" from the login response
}

// Call is one request the fake received
type Call struct {
	Method string
	Path   string
	Query  url.Values
	Body   map[string]any
	Bearer string
}

type failure struct {
	status  int
	message string
	times   int
}

// Server is a running fake backend. All exported methods are safe for
// concurrent use with in-flight requests.
type Server struct {
	*httptest.Server

	mu       sync.Mutex
	accounts []Account
	tokens   map[string]bool
	contacts []map[string]any
	payments []map[string]any
	stats    map[string]any
	calls    []Call
	gates    map[string]*gate
	failures map[string]*failure
	bare     bool
	seq      int
}

// Admin is the operator seeded by New
var Admin = Account{
	Identifier: "admin@sparknexora.com",
	Secret:     "correct-horse",
	Token:      "tok-admin",
	User:       map[string]any{"_id": "u-admin", "email": "admin@sparknexora.com", "name": "Agency Admin"},
}

// New starts a fake with the Admin account, no contacts and no payments
func New(t testing.TB) *Server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	s := &Server{
		accounts: []Account{Admin},
		tokens:   map[string]bool{},
		gates:    map[string]*gate{},
		failures: map[string]*failure{},
	}
	s.Server = httptest.NewServer(s.routes())
	t.Cleanup(func() {
		s.ReleaseAll()
		s.Close()
	})
	return s
}

// BaseURL is what the console's backend.base_url should be set to
func (s *Server) BaseURL() string { return s.URL + "/api" }

// AddAccount registers another operator
func (s *Server) AddAccount(a Account) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts = append(s.accounts, a)
}

// Authorize makes token valid without a login, as after a restart
func (s *Server) Authorize(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[token] = true
}

// Revoke makes every request carrying token answer 401
func (s *Server) Revoke(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tokens, token)
}

// Bare switches responses from the {success, data} envelope to bare bodies
func (s *Server) Bare(on bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bare = on
}

// SeedContacts replaces the contact collection. Records are sent as given.
func (s *Server) SeedContacts(records ...map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.contacts = records
}

// SeedPayments replaces the payment collection
func (s *Server) SeedPayments(records ...map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.payments = records
}

// SetStats sets the /admin/dashboard payload
func (s *Server) SetStats(stats map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stats = stats
}

// Contact returns the stored record for id
func (s *Server) Contact(id string) (map[string]any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(id)
	if i < 0 {
		return nil, false
	}
	return s.contacts[i], true
}

// Fail makes the next times requests to "METHOD /path" (path relative to
// /api, gin pattern allowed) answer status with message.
func (s *Server) Fail(route string, status int, message string, times int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[route] = &failure{status: status, message: message, times: times}
}

type gate struct {
	ch   chan struct{}
	once sync.Once
}

func (g *gate) open() { g.once.Do(func() { close(g.ch) }) }

// Gate holds requests to route until the returned release func is called
func (s *Server) Gate(route string) (release func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g := &gate{ch: make(chan struct{})}
	s.gates[route] = g
	return func() {
		s.mu.Lock()
		if s.gates[route] == g {
			delete(s.gates, route)
		}
		s.mu.Unlock()
		g.open()
	}
}

// ReleaseAll opens every gate
func (s *Server) ReleaseAll() {
	s.mu.Lock()
	gates := s.gates
	s.gates = map[string]*gate{}
	s.mu.Unlock()
	for _, g := range gates {
		g.open()
	}
}

// Calls returns recorded requests matching method and path prefix ("" matches all)
func (s *Server) Calls(method, pathPrefix string) []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Call
	for _, c := range s.calls {
		if (method == "" || c.Method == method) && strings.HasPrefix(c.Path, pathPrefix) {
			out = append(out, c)
		}
	}
	return out
}

// WaitForCalls blocks until n matching requests have arrived or timeout passes
func (s *Server) WaitForCalls(method, pathPrefix string, n int, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if len(s.Calls(method, pathPrefix)) >= n {
			return true
		}
		time.Sleep(2 * time.Millisecond)
	}
	return false
}

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.Use(s.record, s.intercept)

	api := r.Group("/api")
	api.POST("/auth/login", s.login)
	api.POST("/auth/logout", s.logout)
	api.POST("/contacts", s.createContact)
	api.POST("/checkout/session", s.checkoutSession)
	api.GET("/payment/success", s.paymentSuccess)

	admin := api.Group("", s.requireToken)
	admin.GET("/contacts", s.listContacts)
	admin.PUT("/contacts/:id/status", s.updateStatus)
	admin.PUT("/contacts/:id/note", s.addNote)
	admin.DELETE("/contacts/:id", s.deleteContact)
	admin.GET("/payments", s.listPayments)
	admin.GET("/admin/dashboard", s.dashboard)
	admin.GET("/admin/recent", s.recent)
	return r
}

func (s *Server) record(c *gin.Context) {
	call := Call{
		Method: c.Request.Method,
		Path:   strings.TrimPrefix(c.Request.URL.Path, "/api"),
		Query:  c.Request.URL.Query(),
		Bearer: strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer "),
	}
	if c.Request.Body != nil {
		raw, _ := io.ReadAll(c.Request.Body)
		_ = json.Unmarshal(raw, &call.Body)
		c.Request.Body = io.NopCloser(strings.NewReader(string(raw)))
	}
	s.mu.Lock()
	s.calls = append(s.calls, call)
	s.mu.Unlock()
	c.Next()
}

// intercept applies gates and injected failures, keyed by "METHOD /pattern"
func (s *Server) intercept(c *gin.Context) {
	route := c.Request.Method + " " + strings.TrimPrefix(c.FullPath(), "/api")

	s.mu.Lock()
	held := s.gates[route]
	f := s.failures[route]
	if f != nil {
		f.times--
		if f.times <= 0 {
			delete(s.failures, route)
		}
	}
	s.mu.Unlock()

	if held != nil {
		select {
		case <-held.ch:
		case <-c.Request.Context().Done():
			c.Abort()
			return
		}
	}
	if f != nil {
		c.AbortWithStatusJSON(f.status, gin.H{"success": false, "message": f.message})
		return
	}
	c.Next()
}

func (s *Server) requireToken(c *gin.Context) {
	token := strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")
	s.mu.Lock()
	ok := s.tokens[token]
	s.mu.Unlock()
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "message": "Token is not valid"})
		return
	}
	c.Next()
}

func (s *Server) reply(c *gin.Context, status int, data any) {
	s.mu.Lock()
	bare := s.bare
	s.mu.Unlock()
	if bare {
		c.JSON(status, data)
		return
	}
	c.JSON(status, gin.H{"success": true, "data": data})
}

func (s *Server) login(c *gin.Context) {
	var body struct {
		Identifier string `json:"identifier"`
		Secret     string `json:"secret"`
	}
	_ = c.ShouldBindJSON(&body)

	s.mu.Lock()
	var match *Account
	for i := range s.accounts {
		if s.accounts[i].Identifier == body.Identifier && s.accounts[i].Secret == body.Secret {
			match = &s.accounts[i]
			break
		}
	}
	if match != nil {
		s.tokens[match.Token] = true
	}
	s.mu.Unlock()

	if match == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "message": "Invalid credentials"})
		return
	}
	out := gin.H{"token": match.Token}
	if match.User != nil {
		out["user"] = match.User
	}
	s.reply(c, http.StatusOK, out)
}

func (s *Server) logout(c *gin.Context) {
	s.Revoke(strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer "))
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Logged out"})
}

func recordID(rec map[string]any) string {
	if id, ok := rec["id"].(string); ok && id != "" {
		return id
	}
	id, _ := rec["_id"].(string)
	return id
}

// indexOf finds a contact; caller holds mu
func (s *Server) indexOf(id string) int {
	for i, rec := range s.contacts {
		if recordID(rec) == id {
			return i
		}
	}
	return -1
}

func matches(rec map[string]any, q url.Values, fields ...string) bool {
	for _, f := range fields {
		if want := q.Get(f); want != "" && !strings.EqualFold(fmt.Sprint(rec[f]), want) {
			return false
		}
	}
	if search := strings.ToLower(q.Get("search")); search != "" {
		for _, f := range []string{"name", "email", "company", "message", "subject", "customerName", "customerEmail", "packageName"} {
			if v, ok := rec[f].(string); ok && strings.Contains(strings.ToLower(v), search) {
				return true
			}
		}
		return false
	}
	return true
}

func paginate(q url.Values, n int) (page, limit, totalPages, from, to int) {
	page, _ = strconv.Atoi(q.Get("page"))
	limit, _ = strconv.Atoi(q.Get("limit"))
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}
	totalPages = (n + limit - 1) / limit
	from = min((page-1)*limit, n)
	to = min(from+limit, n)
	return
}

func (s *Server) listContacts(c *gin.Context) {
	q := c.Request.URL.Query()
	s.mu.Lock()
	var hits []map[string]any
	for _, rec := range s.contacts {
		if matches(rec, q, "status", "priority", "service") {
			hits = append(hits, rec)
		}
	}
	s.mu.Unlock()

	page, limit, totalPages, from, to := paginate(q, len(hits))
	s.reply(c, http.StatusOK, gin.H{
		"contacts": nonNil(hits[from:to]),
		"pagination": gin.H{
			"page":       page,
			"limit":      limit,
			"total":      len(hits),
			"totalPages": totalPages,
		},
	})
}

func (s *Server) updateStatus(c *gin.Context) {
	var body map[string]any
	_ = c.ShouldBindJSON(&body)

	s.mu.Lock()
	i := s.indexOf(c.Param("id"))
	if i >= 0 {
		for _, k := range []string{"status", "priority"} {
			if v, ok := body[k]; ok && v != "" {
				s.contacts[i][k] = v
			}
		}
	}
	s.mu.Unlock()

	if i < 0 {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "Contact not found"})
		return
	}
	s.reply(c, http.StatusOK, gin.H{"message": "Contact updated"})
}

func (s *Server) addNote(c *gin.Context) {
	var body struct {
		Note    string `json:"note"`
		AddedBy string `json:"addedBy"`
	}
	_ = c.ShouldBindJSON(&body)

	s.mu.Lock()
	i := s.indexOf(c.Param("id"))
	if i >= 0 {
		notes, _ := s.contacts[i]["adminNotes"].([]any)
		s.contacts[i]["adminNotes"] = append(notes, map[string]any{
			"note":    body.Note,
			"addedBy": body.AddedBy,
			"addedAt": time.Now().UTC().Format(time.RFC3339),
		})
	}
	s.mu.Unlock()

	if i < 0 {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "Contact not found"})
		return
	}
	s.reply(c, http.StatusOK, gin.H{"message": "Note added"})
}

func (s *Server) deleteContact(c *gin.Context) {
	s.mu.Lock()
	i := s.indexOf(c.Param("id"))
	if i >= 0 {
		s.contacts = append(s.contacts[:i], s.contacts[i+1:]...)
	}
	s.mu.Unlock()

	if i < 0 {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "Contact not found"})
		return
	}
	s.reply(c, http.StatusOK, gin.H{"message": "Contact deleted"})
}

func (s *Server) createContact(c *gin.Context) {
	var body map[string]any
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid body"})
		return
	}
	s.mu.Lock()
	s.seq++
	body["_id"] = fmt.Sprintf("c-%d", s.seq)
	body["status"] = "new"
	body["createdAt"] = time.Now().UTC().Format(time.RFC3339)
	s.contacts = append(s.contacts, body)
	s.mu.Unlock()
	s.reply(c, http.StatusCreated, gin.H{"id": body["_id"]})
}

func (s *Server) listPayments(c *gin.Context) {
	q := c.Request.URL.Query()
	s.mu.Lock()
	var hits []map[string]any
	counts := map[string]int{}
	revenue := 0.0
	for _, rec := range s.payments {
		status := fmt.Sprint(rec["status"])
		counts[status]++
		if status == "succeeded" || status == "completed" {
			if v, ok := rec["amount"].(float64); ok {
				revenue += v
			}
		}
		if matches(rec, q, "status") {
			hits = append(hits, rec)
		}
	}
	s.mu.Unlock()

	sort.SliceStable(hits, func(i, j int) bool {
		return fmt.Sprint(hits[i]["createdAt"]) > fmt.Sprint(hits[j]["createdAt"])
	})

	page, _, totalPages, from, to := paginate(q, len(hits))
	s.reply(c, http.StatusOK, gin.H{
		"items":        nonNil(hits[from:to]),
		"page":         page,
		"totalPages":   totalPages,
		"total":        len(hits),
		"totalRevenue": revenue,
		"statusCounts": counts,
	})
}

func (s *Server) dashboard(c *gin.Context) {
	s.mu.Lock()
	stats := s.stats
	if stats == nil {
		byStatus := map[string]int{}
		for _, rec := range s.contacts {
			byStatus[fmt.Sprint(rec["status"])]++
		}
		stats = map[string]any{
			"overview": map[string]int{
				"totalContacts":   len(s.contacts),
				"newContacts":     byStatus["new"],
				"readContacts":    byStatus["read"],
				"repliedContacts": byStatus["replied"],
				"closedContacts":  byStatus["closed"],
				"recentContacts":  len(s.contacts),
				"monthlyContacts": len(s.contacts),
			},
			"priorityStats": []map[string]any{},
			"serviceStats":  []map[string]any{},
		}
	}
	s.mu.Unlock()
	s.reply(c, http.StatusOK, stats)
}

func (s *Server) recent(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "5"))
	s.mu.Lock()
	n := min(limit, len(s.contacts))
	recent := make([]map[string]any, 0, n)
	for i := len(s.contacts) - 1; i >= 0 && len(recent) < n; i-- {
		recent = append(recent, s.contacts[i])
	}
	s.mu.Unlock()
	s.reply(c, http.StatusOK, recent)
}

func (s *Server) checkoutSession(c *gin.Context) {
	var body map[string]any
	_ = c.ShouldBindJSON(&body)
	s.mu.Lock()
	s.seq++
	id := fmt.Sprintf("cs_test_%d", s.seq)
	s.mu.Unlock()
	s.reply(c, http.StatusOK, gin.H{"sessionId": id, "url": "https://checkout.stripe.com/c/pay/" + id})
}

func (s *Server) paymentSuccess(c *gin.Context) {
	id := c.Query("session_id")
	if id == "" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "session_id is required"})
		return
	}
	s.reply(c, http.StatusOK, gin.H{
		"payment": gin.H{
			"id":          "pi_" + id,
			"status":      "succeeded",
			"packageName": "Growth Ignite",
			"paidAt":      "2026-03-01T10:00:00Z",
		},
		"order": gin.H{
			"id":            "ord_" + id,
			"orderNumber":   "SN-" + strings.TrimPrefix(id, "cs_test_"),
			"status":        "active",
			"packageName":   "Growth Ignite",
			"packagePrice":  499,
			"customerName":  "Jane Doe",
			"customerEmail": "jane@example.com",
		},
	})
}

func nonNil(recs []map[string]any) []map[string]any {
	if recs == nil {
		return []map[string]any{}
	}
	return recs
}

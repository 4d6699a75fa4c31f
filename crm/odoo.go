// ABOUTME: Odoo CRM backend over the JSON-RPC endpoint
// ABOUTME: Reads and writes res.partner records, categories and chatter notes
package crm

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	stdsync "sync"
	"sync/atomic"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/harperreed/kontakt/reconcile"
)

// ErrRPC marks an error reported by the Odoo server itself.
var ErrRPC = eris.New("odoo rpc error")

var partnerFields = []string{
	"name", "email", "phone", "street", "street2", "city", "zip", "country_id",
	"website", "function", "lang", "comment", "category_id", "is_company",
}

// OdooOptions holds the connection settings for an Odoo database.
type OdooOptions struct {
	URL      string
	Database string
	Username string
	Password string
	Timeout  time.Duration
}

// OdooBackend talks to Odoo through /jsonrpc. It logs in lazily on first use.
type OdooBackend struct {
	opts   OdooOptions
	client *http.Client
	log    *zap.Logger

	mu  stdsync.Mutex
	uid int
	seq atomic.Int64
}

// NewOdooBackend creates a backend; pass nil client to use a default one.
func NewOdooBackend(opts OdooOptions, client *http.Client, log *zap.Logger) *OdooBackend {
	opts.URL = strings.TrimRight(opts.URL, "/")
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}
	if client == nil {
		client = &http.Client{Timeout: opts.Timeout}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &OdooBackend{opts: opts, client: client, log: log.With(zap.String("component", "odoo"))}
}

type rpcRequest struct {
	JSONRPC string    `json:"jsonrpc"`
	Method  string    `json:"method"`
	Params  rpcParams `json:"params"`
	ID      int64     `json:"id"`
}

type rpcParams struct {
	Service string `json:"service"`
	Method  string `json:"method"`
	Args    []any  `json:"args"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    struct {
		Name    string `json:"name"`
		Message string `json:"message"`
	} `json:"data"`
}

func (b *OdooBackend) call(ctx context.Context, service, method string, args ...any) (json.RawMessage, error) {
	req := rpcRequest{
		JSONRPC: "2.0",
		Method:  "call",
		Params:  rpcParams{Service: service, Method: method, Args: args},
		ID:      b.seq.Add(1),
	}
	body, err := json.Marshal(req)
	if err != nil {
		return nil, eris.Wrap(err, "failed to encode rpc request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, b.opts.URL+"/jsonrpc", bytes.NewReader(body))
	if err != nil {
		return nil, eris.Wrap(err, "failed to build rpc request")
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := b.client.Do(httpReq)
	if err != nil {
		return nil, eris.Wrapf(err, "odoo request %s.%s failed", service, method)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("odoo request %s.%s returned HTTP %d", service, method, resp.StatusCode)
	}

	var out rpcResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, eris.Wrap(err, "failed to decode rpc response")
	}
	if out.Error != nil {
		msg := out.Error.Data.Message
		if msg == "" {
			msg = out.Error.Message
		}
		return nil, eris.Wrapf(ErrRPC, "%s.%s: %s", service, method, msg)
	}
	return out.Result, nil
}

func (b *OdooBackend) login(ctx context.Context) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.uid != 0 {
		return b.uid, nil
	}

	raw, err := b.call(ctx, "common", "login", b.opts.Database, b.opts.Username, b.opts.Password)
	if err != nil {
		return 0, eris.Wrap(err, "odoo login failed")
	}
	var uid int
	if err := json.Unmarshal(raw, &uid); err != nil || uid == 0 {
		return 0, eris.Wrapf(ErrRPC, "odoo login rejected for %s", b.opts.Username)
	}
	b.uid = uid
	b.log.Info("logged in", zap.String("database", b.opts.Database), zap.Int("uid", uid))
	return uid, nil
}

func (b *OdooBackend) executeKw(ctx context.Context, model, method string, args []any, kwargs map[string]any, out any) error {
	uid, err := b.login(ctx)
	if err != nil {
		return err
	}
	if kwargs == nil {
		kwargs = map[string]any{}
	}
	raw, err := b.call(ctx, "object", "execute_kw", b.opts.Database, uid, b.opts.Password, model, method, args, kwargs)
	if err != nil {
		return eris.Wrapf(err, "%s %s", model, method)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return eris.Wrapf(err, "failed to decode %s %s result", model, method)
	}
	return nil
}

func (b *OdooBackend) FindByEmail(ctx context.Context, email string) (*reconcile.ExistingContact, error) {
	email = strings.TrimSpace(email)
	if email == "" || !strings.Contains(email, "@") {
		return nil, nil
	}
	domain := []any{[]any{"email", "=ilike", escapeLike(email)}}
	return b.readOne(ctx, []any{domain}, map[string]any{"fields": partnerFields, "limit": 1, "order": "id asc"})
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// escapeLike makes s match itself literally in an Odoo (I)LIKE pattern.
func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

func (b *OdooBackend) Get(ctx context.Context, id string) (*reconcile.ExistingContact, error) {
	partnerID, err := strconv.Atoi(id)
	if err != nil {
		return nil, eris.Wrapf(err, "invalid partner id %q", id)
	}
	domain := []any{[]any{"id", "=", partnerID}}
	return b.readOne(ctx, []any{domain}, map[string]any{"fields": partnerFields, "limit": 1})
}

func (b *OdooBackend) readOne(ctx context.Context, args []any, kwargs map[string]any) (*reconcile.ExistingContact, error) {
	var rows []map[string]any
	if err := b.executeKw(ctx, "res.partner", "search_read", args, kwargs, &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}

	contact := partnerFromRow(rows[0])
	if countryID := many2oneID(rows[0]["country_id"]); countryID != 0 {
		code, err := b.countryCode(ctx, countryID)
		if err != nil {
			return nil, err
		}
		contact.CountryCode = code
	}
	return contact, nil
}

func (b *OdooBackend) Create(ctx context.Context, payload reconcile.MergePayload) (string, error) {
	values, err := b.partnerValues(ctx, payload)
	if err != nil {
		return "", err
	}
	var id int
	if err := b.executeKw(ctx, "res.partner", "create", []any{values}, nil, &id); err != nil {
		return "", err
	}
	b.log.Info("created partner", zap.Int("id", id))
	return strconv.Itoa(id), nil
}

func (b *OdooBackend) Update(ctx context.Context, id string, payload reconcile.MergePayload) error {
	if payload.IsEmpty() {
		return nil
	}
	partnerID, err := strconv.Atoi(id)
	if err != nil {
		return eris.Wrapf(err, "invalid partner id %q", id)
	}
	values, err := b.partnerValues(ctx, payload)
	if err != nil {
		return err
	}
	if err := b.executeKw(ctx, "res.partner", "write", []any{[]int{partnerID}, values}, nil, nil); err != nil {
		return err
	}
	b.log.Info("updated partner", zap.Int("id", partnerID), zap.Strings("fields", payload.Fields()))
	return nil
}

func (b *OdooBackend) PostNote(ctx context.Context, id, subject, body string) error {
	partnerID, err := strconv.Atoi(id)
	if err != nil {
		return eris.Wrapf(err, "invalid partner id %q", id)
	}
	kwargs := map[string]any{
		"body":          body,
		"message_type":  "comment",
		"subtype_xmlid": "mail.mt_note",
		"subject":       subject,
	}
	return b.executeKw(ctx, "res.partner", "message_post", []any{[]int{partnerID}}, kwargs, nil)
}

func (b *OdooBackend) Categories(ctx context.Context) ([]reconcile.CategoryEntry, error) {
	var rows []struct {
		ID   int    `json:"id"`
		Name string `json:"name"`
	}
	if err := b.executeKw(ctx, "res.partner.category", "search_read", []any{[]any{}}, map[string]any{"fields": []string{"name"}}, &rows); err != nil {
		return nil, err
	}
	entries := make([]reconcile.CategoryEntry, 0, len(rows))
	for _, r := range rows {
		entries = append(entries, reconcile.CategoryEntry{ID: strconv.Itoa(r.ID), Name: r.Name})
	}
	return entries, nil
}

func (b *OdooBackend) CategoryNames(ctx context.Context, ids []string) ([]string, error) {
	numeric, err := atoiAll(ids)
	if err != nil {
		return nil, err
	}
	if len(numeric) == 0 {
		return nil, nil
	}
	var rows []struct {
		Name string `json:"name"`
	}
	if err := b.executeKw(ctx, "res.partner.category", "read", []any{numeric}, map[string]any{"fields": []string{"name"}}, &rows); err != nil {
		return nil, err
	}
	names := make([]string, 0, len(rows))
	for _, r := range rows {
		names = append(names, r.Name)
	}
	return names, nil
}

// Link returns the partner form URL in the Odoo web client.
func (b *OdooBackend) Link(id string) string {
	if id == "" {
		return ""
	}
	return b.opts.URL + "/web#id=" + id + "&model=res.partner&view_type=form"
}

func (b *OdooBackend) countryCode(ctx context.Context, countryID int) (string, error) {
	var rows []struct {
		Code string `json:"code"`
	}
	if err := b.executeKw(ctx, "res.country", "read", []any{[]int{countryID}}, map[string]any{"fields": []string{"code"}}, &rows); err != nil {
		return "", err
	}
	if len(rows) == 0 {
		return "", nil
	}
	return rows[0].Code, nil
}

func (b *OdooBackend) countryID(ctx context.Context, code string) (int, error) {
	var ids []int
	domain := []any{[]any{"code", "=", strings.ToUpper(code)}}
	if err := b.executeKw(ctx, "res.country", "search", []any{domain}, map[string]any{"limit": 1}, &ids); err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		return 0, nil
	}
	return ids[0], nil
}

// partnerValues maps a payload onto res.partner field values. State is not
// written because Odoo stores it as a country-scoped relation.
func (b *OdooBackend) partnerValues(ctx context.Context, p reconcile.MergePayload) (map[string]any, error) {
	values := map[string]any{}
	put := func(field string, v *string) {
		if v != nil {
			values[field] = *v
		}
	}
	put("name", p.Name)
	put("email", p.Email)
	put("lang", p.Lang)
	put("comment", p.Comment)
	put("street", p.Street)
	put("street2", p.Street2)
	put("city", p.City)
	put("zip", p.Zip)
	put("phone", p.Phone)
	put("website", p.Website)
	put("function", p.Function)
	if p.IsCompany != nil {
		values["is_company"] = *p.IsCompany
	}

	if p.CountryCode != nil && *p.CountryCode != "" {
		id, err := b.countryID(ctx, *p.CountryCode)
		if err != nil {
			b.log.Warn("country lookup failed", zap.String("code", *p.CountryCode), zap.Error(err))
		} else if id != 0 {
			values["country_id"] = id
		}
	}

	if p.CategoryIDs != nil {
		ids, err := atoiAll(p.CategoryIDs)
		if err != nil {
			return nil, err
		}
		values["category_id"] = []any{[]any{6, 0, ids}}
	}
	return values, nil
}

func partnerFromRow(row map[string]any) *reconcile.ExistingContact {
	c := &reconcile.ExistingContact{
		ID:       strconv.Itoa(int(number(row["id"]))),
		Name:     text(row["name"]),
		Email:    text(row["email"]),
		Phone:    text(row["phone"]),
		Street:   text(row["street"]),
		Street2:  text(row["street2"]),
		City:     text(row["city"]),
		Zip:      text(row["zip"]),
		Website:  text(row["website"]),
		Function: text(row["function"]),
		Lang:     text(row["lang"]),
		Comment:  text(row["comment"]),
	}
	if v, ok := row["is_company"].(bool); ok {
		c.IsCompany = v
	}
	if ids, ok := row["category_id"].([]any); ok {
		for _, id := range ids {
			c.CategoryIDs = append(c.CategoryIDs, strconv.Itoa(int(number(id))))
		}
	}
	return c
}

// text returns "" for Odoo's false placeholder and other non-strings.
func text(v any) string {
	s, _ := v.(string)
	return s
}

func number(v any) float64 {
	f, _ := v.(float64)
	return f
}

// many2oneID reads the id out of an Odoo [id, "display name"] pair.
func many2oneID(v any) int {
	pair, ok := v.([]any)
	if !ok || len(pair) == 0 {
		return 0
	}
	return int(number(pair[0]))
}

func atoiAll(ids []string) ([]int, error) {
	out := make([]int, 0, len(ids))
	for _, id := range ids {
		n, err := strconv.Atoi(id)
		if err != nil {
			return nil, eris.Wrapf(err, "invalid category id %q", id)
		}
		out = append(out, n)
	}
	return out, nil
}

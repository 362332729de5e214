package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/galette-community/plugin-stripe/internal/audit/domain"
	authdomain "github.com/galette-community/plugin-stripe/internal/auth/domain"
	"github.com/galette-community/plugin-stripe/internal/authorization"
	"github.com/galette-community/plugin-stripe/internal/config"
	ledgerdomain "github.com/galette-community/plugin-stripe/internal/ledger/domain"
	"github.com/galette-community/plugin-stripe/internal/payment/checkout"
	"github.com/galette-community/plugin-stripe/internal/payment/webhook"
	pricetierdomain "github.com/galette-community/plugin-stripe/internal/pricetier/domain"
	"github.com/galette-community/plugin-stripe/internal/providers/pdf"
	"github.com/galette-community/plugin-stripe/internal/reference"
	settingsdomain "github.com/galette-community/plugin-stripe/internal/settings/domain"
	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gorm.io/gorm"
)

const (
	adminToken = "admin-token"
	staffToken = "staff-token"
)

type fakeAuthService struct{}

func (f *fakeAuthService) Authenticate(ctx context.Context, rawToken string) (authdomain.Principal, error) {
	switch rawToken {
	case adminToken:
		return authdomain.Principal{Role: authdomain.RoleAdmin, TokenID: "admin0000001"}, nil
	case staffToken:
		return authdomain.Principal{Role: authdomain.RoleStaff, TokenID: "staff0000001"}, nil
	default:
		return authdomain.Principal{}, authdomain.ErrInvalidCredentials
	}
}

type fakeAuditService struct {
	actions  []string
	metadata []map[string]any
}

func (f *fakeAuditService) AuditLog(ctx context.Context, actorType string, actorID *string, action string, targetType string, targetID *string, metadata map[string]any) error {
	f.actions = append(f.actions, action)
	f.metadata = append(f.metadata, metadata)
	return nil
}

func (f *fakeAuditService) List(ctx context.Context, req auditdomain.ListAuditLogRequest) (auditdomain.ListAuditLogResponse, error) {
	if req.StartAt != nil && req.EndAt != nil && req.EndAt.Before(*req.StartAt) {
		return auditdomain.ListAuditLogResponse{}, auditdomain.ErrInvalidTimeRange
	}
	return auditdomain.ListAuditLogResponse{AuditLogs: []auditdomain.AuditLog{}}, nil
}

type fakeSettingsService struct {
	settings settingsdomain.Settings
	updates  []settingsdomain.UpdateRequest
	errors   []settingsdomain.FieldError
}

func (f *fakeSettingsService) Get(ctx context.Context) (settingsdomain.Settings, error) {
	return f.settings, nil
}

func (f *fakeSettingsService) View(ctx context.Context) (settingsdomain.View, error) {
	return settingsdomain.View{
		PublicKey:        f.settings.PublicKey,
		PrivateKeySet:    f.settings.PrivateKey != "",
		WebhookSecretSet: f.settings.WebhookSecret != "",
		Country:          f.settings.Country,
		Currency:         f.settings.Currency,
		InactiveTierIDs:  f.settings.InactiveTierIDs,
		Configured:       f.settings.Configured(),
	}, nil
}

func (f *fakeSettingsService) PrivateKey(ctx context.Context) (string, error) {
	if f.settings.PrivateKey == "" {
		return "", settingsdomain.ErrNotConfigured
	}
	return f.settings.PrivateKey, nil
}

func (f *fakeSettingsService) WebhookSecret(ctx context.Context) (string, error) {
	if f.settings.WebhookSecret == "" {
		return "", settingsdomain.ErrNotConfigured
	}
	return f.settings.WebhookSecret, nil
}

func (f *fakeSettingsService) Currency(ctx context.Context) (string, error) {
	return f.settings.Currency, nil
}

func (f *fakeSettingsService) IsZeroDecimalCurrency(code string) bool {
	return false
}

func (f *fakeSettingsService) Update(ctx context.Context, req settingsdomain.UpdateRequest) settingsdomain.Result {
	if len(f.errors) > 0 {
		return settingsdomain.Result{Input: req, Errors: f.errors}
	}
	f.updates = append(f.updates, req)
	if req.PrivateKey != nil {
		f.settings.PrivateKey = *req.PrivateKey
	}
	if req.InactiveTierIDs != nil {
		f.settings.InactiveTierIDs = *req.InactiveTierIDs
	}
	view, _ := f.View(ctx)
	return settingsdomain.Result{Settings: view}
}

type fakePriceTierService struct {
	lastList pricetierdomain.ListRequest
	tiers    []pricetierdomain.PriceTier
}

func (f *fakePriceTierService) List(ctx context.Context, req pricetierdomain.ListRequest) ([]pricetierdomain.PriceTier, error) {
	f.lastList = req
	return f.tiers, nil
}

func (f *fakePriceTierService) Get(ctx context.Context, id int64) (pricetierdomain.PriceTier, error) {
	for _, t := range f.tiers {
		if t.ID == id {
			return t, nil
		}
	}
	return pricetierdomain.PriceTier{}, pricetierdomain.ErrNotFound
}

func (f *fakePriceTierService) UpdateAmounts(ctx context.Context, updates []pricetierdomain.AmountUpdate) ([]pricetierdomain.PriceTier, error) {
	for _, u := range updates {
		if u.Amount != nil && u.Amount.IsNegative() {
			return nil, pricetierdomain.ErrInvalidAmount
		}
	}
	return f.tiers, nil
}

type fakeLedgerService struct {
	entries map[snowflake.ID]ledgerdomain.Entry
}

func (f *fakeLedgerService) Record(ctx context.Context, req ledgerdomain.RecordRequest) (snowflake.ID, error) {
	return 0, nil
}

func (f *fakeLedgerService) IsAlreadyProcessed(ctx context.Context, intentID string) (bool, error) {
	return false, nil
}

func (f *fakeLedgerService) Transition(ctx context.Context, db *gorm.DB, id snowflake.ID, state ledgerdomain.State) error {
	return nil
}

func (f *fakeLedgerService) List(ctx context.Context, req ledgerdomain.ListRequest) (ledgerdomain.ListResponse, error) {
	resp := ledgerdomain.ListResponse{}
	for _, e := range f.entries {
		resp.Entries = append(resp.Entries, ledgerdomain.EntryView{Entry: e, StateLabel: e.State.String()})
	}
	return resp, nil
}

func (f *fakeLedgerService) CountByState(ctx context.Context) (map[ledgerdomain.State]int64, error) {
	counts := map[ledgerdomain.State]int64{}
	for _, e := range f.entries {
		counts[e.State]++
	}
	return counts, nil
}

func (f *fakeLedgerService) ListStale(ctx context.Context, cutoff time.Time, limit int) ([]ledgerdomain.Entry, error) {
	return nil, nil
}

func (f *fakeLedgerService) Get(ctx context.Context, id snowflake.ID) (ledgerdomain.Entry, error) {
	entry, ok := f.entries[id]
	if !ok {
		return ledgerdomain.Entry{}, ledgerdomain.ErrNotFound
	}
	return entry, nil
}

type fakeWebhookHandler struct {
	payload    []byte
	signatures []string
	result     webhook.Result
}

func (f *fakeWebhookHandler) Handle(ctx context.Context, payload []byte, signatures []string) webhook.Result {
	f.payload = payload
	f.signatures = signatures
	return f.result
}

type fakeCheckoutService struct {
	last checkout.Request
	err  error
}

func (f *fakeCheckoutService) CreateIntent(ctx context.Context, req checkout.Request) (checkout.Response, error) {
	f.last = req
	if f.err != nil {
		return checkout.Response{}, f.err
	}
	return checkout.Response{IntentID: "pi_test", ClientSecret: "pi_test_secret", Currency: "eur"}, nil
}

type testServer struct {
	*Server
	audit     *fakeAuditService
	settings  *fakeSettingsService
	tiers     *fakePriceTierService
	ledger    *fakeLedgerService
	webhook   *fakeWebhookHandler
	checkouts *fakeCheckoutService
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:server_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	enforcer, err := authorization.NewEnforcer(db)
	require.NoError(t, err)

	log := zaptest.NewLogger(t)
	ts := &testServer{
		audit: &fakeAuditService{},
		settings: &fakeSettingsService{settings: settingsdomain.Settings{
			PublicKey:     "pk_test_1",
			PrivateKey:    "sk_test_1",
			WebhookSecret: "whsec_1",
			Country:       "FR",
			Currency:      "eur",
		}},
		tiers:     &fakePriceTierService{},
		ledger:    &fakeLedgerService{entries: map[snowflake.ID]ledgerdomain.Entry{}},
		webhook:   &fakeWebhookHandler{},
		checkouts: &fakeCheckoutService{},
	}

	engine := gin.New()
	engine.Use(ErrorHandlingMiddleware())

	ts.Server = &Server{
		engine: engine,
		cfg: config.Config{
			Receipt: config.ReceiptConfig{OrganizationName: "Galette"},
		},
		log:          log,
		authsvc:      &fakeAuthService{},
		authzSvc:     authorization.NewService(authorization.Params{Log: log, Enforcer: enforcer, AuditSvc: ts.audit}),
		auditSvc:     ts.audit,
		settingsSvc:  ts.settings,
		priceTierSvc: ts.tiers,
		ledgerSvc:    ts.ledger,
		webhookSvc:   ts.webhook,
		checkoutSvc:  ts.checkouts,
		pdfProvider:  pdf.New(),
		refrepo:      reference.NewRepository(),
	}
	ts.registerRoutes()
	return ts
}

func (ts *testServer) do(method, path, token string, body any) *httptest.ResponseRecorder {
	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = strings.NewReader(b)
	default:
		raw, _ := json.Marshal(b)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	ts.engine.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorPayload {
	t.Helper()
	var resp errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.Error
}

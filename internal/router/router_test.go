package router

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/mealpoint/loyalty/internal/config"
	"github.com/mealpoint/loyalty/internal/models"
	"github.com/mealpoint/loyalty/internal/provider"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

type apiResponse struct {
	StatusCode int             `json:"status_code"`
	Msg        string          `json:"msg"`
	Data       json.RawMessage `json:"data"`
}

func setupRouterTest(t *testing.T) (*gin.Engine, *gorm.DB) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	dsn := fmt.Sprintf("file:router_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("get sql db failed: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := db.AutoMigrate(models.AllModels()...); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	models.DB = db

	cfg := &config.Config{Server: config.ServerConfig{Mode: "debug"}}
	container := provider.NewContainer(cfg)
	return SetupRouter(cfg, container), db
}

func performJSON(t *testing.T, r *gin.Engine, method, path string, body interface{}) apiResponse {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body failed: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("%s %s http status want 200 got %d", method, path, w.Code)
	}
	var resp apiResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response failed: %v body=%s", err, w.Body.String())
	}
	return resp
}

func TestLoyaltyEndpoints(t *testing.T) {
	r, db := setupRouterTest(t)
	if err := db.Create(&models.Customer{ID: 1, Name: "alice"}).Error; err != nil {
		t.Fatalf("create customer failed: %v", err)
	}

	resp := performJSON(t, r, http.MethodPost, "/api/v1/admin/loyalty/customers/1/points", gin.H{
		"points": 250,
		"type":   "earned",
		"reason": "welcome",
	})
	if resp.StatusCode != 0 {
		t.Fatalf("add points failed: %+v", resp)
	}

	resp = performJSON(t, r, http.MethodGet, "/api/v1/public/customers/1/loyalty", nil)
	if resp.StatusCode != 0 {
		t.Fatalf("summary failed: %+v", resp)
	}
	var summary struct {
		TotalPoints  int64  `json:"total_points"`
		LoyaltyLevel string `json:"loyalty_level"`
	}
	if err := json.Unmarshal(resp.Data, &summary); err != nil {
		t.Fatalf("decode summary failed: %v", err)
	}
	if summary.TotalPoints != 350 || summary.LoyaltyLevel != "standard" {
		t.Fatalf("unexpected summary: %+v", summary)
	}

	resp = performJSON(t, r, http.MethodPost, "/api/v1/admin/loyalty/customers/1/redeem", gin.H{"points": 50})
	if resp.StatusCode != 400 {
		t.Fatalf("below minimum should be 400, got %+v", resp)
	}
	resp = performJSON(t, r, http.MethodPost, "/api/v1/admin/loyalty/customers/1/redeem", gin.H{"points": 10000})
	if resp.StatusCode != 409 {
		t.Fatalf("insufficient points should be 409, got %+v", resp)
	}
	resp = performJSON(t, r, http.MethodPost, "/api/v1/admin/loyalty/customers/1/redeem", gin.H{"points": 100})
	if resp.StatusCode != 0 {
		t.Fatalf("redeem failed: %+v", resp)
	}
	var redemption struct {
		TotalPointsUsed int64 `json:"total_points_used"`
	}
	if err := json.Unmarshal(resp.Data, &redemption); err != nil {
		t.Fatalf("decode redemption failed: %v", err)
	}
	if redemption.TotalPointsUsed != 100 {
		t.Fatalf("unexpected redemption: %+v", redemption)
	}

	resp = performJSON(t, r, http.MethodGet, "/api/v1/public/customers/99/loyalty", nil)
	if resp.StatusCode != 404 {
		t.Fatalf("missing customer should be 404, got %+v", resp)
	}
	resp = performJSON(t, r, http.MethodGet, "/api/v1/public/customers/abc/loyalty", nil)
	if resp.StatusCode != 400 {
		t.Fatalf("bad id should be 400, got %+v", resp)
	}

	resp = performJSON(t, r, http.MethodGet, "/api/v1/public/loyalty/points-for-amount?amount=12345.67", nil)
	var conversion struct {
		Points int64 `json:"points"`
	}
	if err := json.Unmarshal(resp.Data, &conversion); err != nil {
		t.Fatalf("decode conversion failed: %v", err)
	}
	if resp.StatusCode != 0 || conversion.Points != 123 {
		t.Fatalf("unexpected conversion: %+v %+v", resp, conversion)
	}
}

func TestPromotionEndpoints(t *testing.T) {
	r, db := setupRouterTest(t)
	if err := db.Create(&models.Customer{ID: 1, Name: "bob"}).Error; err != nil {
		t.Fatalf("create customer failed: %v", err)
	}
	now := time.Now().UTC()
	resp := performJSON(t, r, http.MethodPost, "/api/v1/admin/promotions", gin.H{
		"name":                "ten percent",
		"discount_type":       "percentage",
		"discount_value":      "10",
		"target_type":         "all_products",
		"max_discount_amount": "2000",
		"max_usage_per_user":  1,
		"start_date":          now.Add(-time.Hour).Format(time.RFC3339),
		"expiration_date":     now.Add(24 * time.Hour).Format(time.RFC3339),
	})
	if resp.StatusCode != 0 {
		t.Fatalf("create promotion failed: %+v", resp)
	}
	var promotion struct {
		ID     uint   `json:"id"`
		Status string `json:"status"`
	}
	if err := json.Unmarshal(resp.Data, &promotion); err != nil {
		t.Fatalf("decode promotion failed: %v", err)
	}
	if promotion.ID == 0 || promotion.Status != "active" {
		t.Fatalf("unexpected promotion: %+v", promotion)
	}

	base := fmt.Sprintf("/api/v1/public/promotions/%d", promotion.ID)
	resp = performJSON(t, r, http.MethodPost, base+"/calculate", gin.H{"order_amount": "30000"})
	var discount struct {
		Applicable     bool   `json:"applicable"`
		DiscountAmount string `json:"discount_amount"`
		FinalAmount    string `json:"final_amount"`
	}
	if err := json.Unmarshal(resp.Data, &discount); err != nil {
		t.Fatalf("decode discount failed: %v", err)
	}
	if !discount.Applicable || discount.DiscountAmount != "2000.00" || discount.FinalAmount != "28000.00" {
		t.Fatalf("unexpected discount: %+v", discount)
	}

	resp = performJSON(t, r, http.MethodPost, base+"/use", gin.H{"customer_id": 1, "order_id": 10, "order_amount": "300"})
	if resp.StatusCode != 0 {
		t.Fatalf("use promotion failed: %+v", resp)
	}
	resp = performJSON(t, r, http.MethodPost, base+"/use", gin.H{"customer_id": 1, "order_id": 11, "order_amount": "300"})
	if resp.StatusCode != 409 {
		t.Fatalf("second use should hit per-user limit, got %+v", resp)
	}
	resp = performJSON(t, r, http.MethodGet, base+"/eligibility?customer_id=1", nil)
	var eligibility struct {
		Allowed bool `json:"allowed"`
	}
	if err := json.Unmarshal(resp.Data, &eligibility); err != nil {
		t.Fatalf("decode eligibility failed: %v", err)
	}
	if resp.StatusCode != 0 || eligibility.Allowed {
		t.Fatalf("expected not allowed, got %+v", resp)
	}

	resp = performJSON(t, r, http.MethodGet, "/api/v1/public/promotions/dish-coverage", nil)
	if resp.StatusCode != 400 {
		t.Fatalf("missing dish_id should be 400, got %+v", resp)
	}

	resp = performJSON(t, r, http.MethodDelete, fmt.Sprintf("/api/v1/admin/promotions/%d", promotion.ID), nil)
	if resp.StatusCode != 0 {
		t.Fatalf("delete promotion failed: %+v", resp)
	}
	resp = performJSON(t, r, http.MethodGet, fmt.Sprintf("/api/v1/admin/promotions/%d", promotion.ID), nil)
	if err := json.Unmarshal(resp.Data, &promotion); err != nil {
		t.Fatalf("decode promotion failed: %v", err)
	}
	if promotion.Status != "expired" {
		t.Fatalf("deleted promotion should be expired, got %s", promotion.Status)
	}
}

func TestMaintenanceEndpoints(t *testing.T) {
	r, _ := setupRouterTest(t)

	resp := performJSON(t, r, http.MethodPost, "/api/v1/admin/loyalty/expire", nil)
	if resp.StatusCode != 0 {
		t.Fatalf("sync expire want 0 got %d: %s", resp.StatusCode, resp.Msg)
	}
	resp = performJSON(t, r, http.MethodPost, "/api/v1/admin/loyalty/expire?async=true", nil)
	if resp.StatusCode != 409 {
		t.Fatalf("async expire without queue want 409 got %d", resp.StatusCode)
	}
	resp = performJSON(t, r, http.MethodPost, "/api/v1/admin/promotions/sync-status?async=true", nil)
	if resp.StatusCode != 409 {
		t.Fatalf("async sync without queue want 409 got %d", resp.StatusCode)
	}

	health := performJSON(t, r, http.MethodGet, "/health", nil)
	if health.StatusCode != 0 {
		t.Fatalf("health want 0 got %d", health.StatusCode)
	}
}

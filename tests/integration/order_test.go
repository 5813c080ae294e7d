//go:build integration

package integration

import (
	"net/http"
	"regexp"
	"strings"
	"testing"
)

const adminAPIKey = "integration-test-key"

var orderNumberPattern = regexp.MustCompile(`^ORD-\d{4}-\d{6}$`)

func placeTestOrder(t *testing.T, email string) orderResponse {
	t.Helper()
	created := placeTestOrderQty(t, email, 2)
	return created.Order
}

func placeTestOrderQty(t *testing.T, email string, qty int) createOrderResponse {
	t.Helper()

	req := createOrderRequest{
		Items: []orderItemRequest{
			{MedicineID: "acetaminophen-500", Quantity: qty},
		},
		CustomerInfo: customerInfo{
			Name:  "Pat Doe",
			Email: email,
			Phone: "555-0100",
		},
		ShippingAddress: "1 Main St, Springfield",
	}
	resp := doPost(t, "/api/orders", req)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	return decodeJSON[createOrderResponse](t, resp)
}

// intentID extracts the payment-intent id from a client secret; the stub uses
// the same "<id>_secret_<nonce>" shape Stripe does.
func intentID(t *testing.T, clientSecret string) string {
	t.Helper()
	id, _, ok := strings.Cut(clientSecret, "_secret_")
	if !ok {
		t.Fatalf("unexpected client secret %q", clientSecret)
	}
	return id
}

func medicineStock(t *testing.T, id string) medicineResponse {
	t.Helper()
	resp := doGet(t, "/api/medicines/"+id)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	return decodeJSON[medicineResponse](t, resp)
}

func TestListMedicines(t *testing.T) {
	resp := doGet(t, "/api/medicines")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	medicines := decodeJSON[[]medicineResponse](t, resp)
	if len(medicines) != 6 {
		t.Fatalf("expected 6 medicines, got %d", len(medicines))
	}
}

func TestGetMedicine(t *testing.T) {
	resp := doGet(t, "/api/medicines/acetaminophen-500")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	med := decodeJSON[medicineResponse](t, resp)
	if med.Price != "12.99" {
		t.Fatalf("expected price 12.99, got %q", med.Price)
	}
	if !med.InStock {
		t.Fatal("expected medicine to be in stock")
	}
}

func TestGetMedicine_NotFound(t *testing.T) {
	resp := doGet(t, "/api/medicines/no-such-medicine")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}

	body := decodeJSON[errorResponse](t, resp)
	if body.Message != "Medicine not found" {
		t.Fatalf("unexpected message %q", body.Message)
	}
}

func TestPlaceOrder(t *testing.T) {
	o := placeTestOrder(t, "orders@example.com")

	if !orderNumberPattern.MatchString(o.OrderNumber) {
		t.Fatalf("unexpected order number %q", o.OrderNumber)
	}
	if o.Status != "pending" {
		t.Fatalf("expected pending, got %q", o.Status)
	}
	if o.Total != "25.98" {
		t.Fatalf("expected total 25.98, got %q", o.Total)
	}
}

func TestPlaceOrder_UnknownMedicine(t *testing.T) {
	req := createOrderRequest{
		Items: []orderItemRequest{{MedicineID: "no-such-medicine", Quantity: 1}},
		CustomerInfo: customerInfo{
			Name:  "Pat Doe",
			Email: "orders@example.com",
			Phone: "555-0100",
		},
		ShippingAddress: "1 Main St, Springfield",
	}
	resp := doPost(t, "/api/orders", req)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestPlaceOrder_EmptyItems(t *testing.T) {
	req := createOrderRequest{
		Items: []orderItemRequest{},
		CustomerInfo: customerInfo{
			Name:  "Pat Doe",
			Email: "orders@example.com",
			Phone: "555-0100",
		},
		ShippingAddress: "1 Main St, Springfield",
	}
	resp := doPost(t, "/api/orders", req)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

// Confirming a paid order walks the whole real path: the Stripe-shaped stub
// reports the intent succeeded, the order flips to confirmed with a tracking
// number, and stock is debited exactly once even when confirm is retried.
func TestConfirmOrder_DebitsStockOnce(t *testing.T) {
	before := medicineStock(t, "acetaminophen-500").StockCount

	created := placeTestOrderQty(t, "confirm@example.com", 2)
	pi := intentID(t, created.ClientSecret)

	confirm := func() (int, string) {
		resp := doPost(t, "/api/orders/confirm", map[string]string{
			"paymentIntentId": pi,
			"orderNumber":     created.Order.OrderNumber,
		})
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return resp.StatusCode, ""
		}
		body := decodeJSON[map[string]any](t, resp)
		tn, _ := body["trackingNumber"].(string)
		return resp.StatusCode, tn
	}

	status, tracking := confirm()
	if status != http.StatusOK {
		t.Fatalf("expected 200, got %d", status)
	}
	if !regexp.MustCompile(`^TRK\d{9}$`).MatchString(tracking) {
		t.Fatalf("unexpected tracking number %q", tracking)
	}

	after := medicineStock(t, "acetaminophen-500").StockCount
	if after != before-2 {
		t.Fatalf("expected stock %d, got %d", before-2, after)
	}

	// Retrying is idempotent: same tracking number, no second debit.
	status, again := confirm()
	if status != http.StatusOK {
		t.Fatalf("expected 200 on retry, got %d", status)
	}
	if again != tracking {
		t.Fatalf("retry issued a different tracking number: %q vs %q", again, tracking)
	}
	if got := medicineStock(t, "acetaminophen-500").StockCount; got != after {
		t.Fatalf("retry debited stock again: %d vs %d", got, after)
	}
}

// A single unit at $12.99 totals 1299 cents, which the stub holds in
// "processing"; confirmation must be refused and nothing mutated.
func TestConfirmOrder_PaymentNotSettled(t *testing.T) {
	before := medicineStock(t, "acetaminophen-500").StockCount

	created := placeTestOrderQty(t, "pending@example.com", 1)
	pi := intentID(t, created.ClientSecret)

	resp := doPost(t, "/api/orders/confirm", map[string]string{
		"paymentIntentId": pi,
		"orderNumber":     created.Order.OrderNumber,
	})
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
	body := decodeJSON[errorResponse](t, resp)
	if body.Message != "Payment not successful" {
		t.Fatalf("unexpected message %q", body.Message)
	}
	if got := medicineStock(t, "acetaminophen-500").StockCount; got != before {
		t.Fatalf("refused confirm mutated stock: %d vs %d", got, before)
	}
}

func TestTrackOrder(t *testing.T) {
	o := placeTestOrder(t, "track@example.com")

	resp := doGet(t, "/api/orders/track/"+o.OrderNumber)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	tr := decodeJSON[trackingResponse](t, resp)
	if tr.OrderNumber != o.OrderNumber {
		t.Fatalf("expected %q, got %q", o.OrderNumber, tr.OrderNumber)
	}
	if len(tr.ProgressSteps) != 6 {
		t.Fatalf("expected 6 steps, got %d", len(tr.ProgressSteps))
	}
	if tr.TrackingNumber == "" || tr.Carrier == "" {
		t.Fatalf("expected tracking number and carrier, got %q / %q", tr.TrackingNumber, tr.Carrier)
	}
}

func TestTrackOrder_NotFound(t *testing.T) {
	resp := doGet(t, "/api/orders/track/ORD-2099-000000")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

func TestListOrdersByEmail(t *testing.T) {
	placeTestOrder(t, "history@example.com")
	placeTestOrder(t, "history@example.com")

	resp := doGet(t, "/api/orders?email=history@example.com")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	orders := decodeJSON[[]orderResponse](t, resp)
	if len(orders) != 2 {
		t.Fatalf("expected 2 orders, got %d", len(orders))
	}
}

func TestCancelOrder_RequiresAPIKey(t *testing.T) {
	o := placeTestOrder(t, "cancel@example.com")

	resp := doPost(t, "/api/orders/"+o.OrderNumber+"/cancel", nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}

	resp = doPostWithAuth(t, "/api/orders/"+o.OrderNumber+"/cancel", nil, "wrong-key")
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}

	resp = doPostWithAuth(t, "/api/orders/"+o.OrderNumber+"/cancel", nil, adminAPIKey)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
}

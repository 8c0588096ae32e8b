package futures

import (
	"net/url"
	"testing"
)

func TestSign(t *testing.T) {
	secret := "NhqPtmdSJYdKjVHjA7PZj4Mge3R5YNiP1e3UZjInClVN65XAbvqqM6A7H5fATj0j"
	query := "symbol=LTCBTC&side=BUY&type=LIMIT&timeInForce=GTC&quantity=1&recvWindow=5000&timestamp=1499827319559"
	want := "3c57dca8d0949094f7bd6fc10c0bd58382ff4254b2b2cd136962330d96f24e71"

	if got := Sign(query, secret); got != want {
		t.Errorf("Sign() = %s, want %s", got, want)
	}
}

func TestSignDeterministic(t *testing.T) {
	if Sign("a=1", "k") != Sign("a=1", "k") {
		t.Error("same input must produce the same signature")
	}
	if Sign("a=1", "k") == Sign("a=1", "other") {
		t.Error("different secrets must produce different signatures")
	}
	if Sign("a=1", "k") == Sign("a=2", "k") {
		t.Error("different payloads must produce different signatures")
	}
}

// Parameters inserted in any order must canonicalize to the same query string
// and therefore the same signature.
func TestSignCanonicalOrdering(t *testing.T) {
	a := url.Values{}
	a.Set("symbol", "BTCUSDT")
	a.Set("side", "BUY")
	a.Set("quantity", "0.5")
	a.Set("timestamp", "1700000000000")

	b := url.Values{}
	b.Set("timestamp", "1700000000000")
	b.Set("quantity", "0.5")
	b.Set("side", "BUY")
	b.Set("symbol", "BTCUSDT")

	if a.Encode() != b.Encode() {
		t.Fatalf("canonical encodings differ: %s vs %s", a.Encode(), b.Encode())
	}
	if Sign(a.Encode(), "secret") != Sign(b.Encode(), "secret") {
		t.Error("signatures differ for identical parameter sets")
	}
}

package common

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
)

func TestBigToFloatString(t *testing.T) {
	tests := []struct {
		value   int64
		decimal uint64
		want    string
	}{
		{1100, 3, "1.1"},
		{1100, 2, "11"},
		{1100, 5, "0.011"},
		{100000, 3, "100"},
		{-25, 1, "-2.5"},
		{7, 0, "7"},
	}
	for _, tc := range tests {
		if got := BigToFloatString(big.NewInt(tc.value), tc.decimal); got != tc.want {
			t.Errorf("BigToFloatString(%d, %d) = %q, want %q", tc.value, tc.decimal, got, tc.want)
		}
	}
}

func TestFloatStringToBig(t *testing.T) {
	got, err := FloatStringToBig("1.5", 18)
	if err != nil || got.String() != "1500000000000000000" {
		t.Errorf("want 1.5e18, got %v (%v)", got, err)
	}
	if _, err := FloatStringToBig("abc", 18); err == nil {
		t.Errorf("expected error")
	}
}

func TestReadableNumber(t *testing.T) {
	if got := ReadableNumber("1234"); got != "1234" {
		t.Errorf("short numbers stay as is, got %q", got)
	}
	if got := ReadableNumber("1234567"); got != "1234567 (1￺234￺567)" {
		t.Errorf("unexpected grouping %q", got)
	}
}

func TestTokenAmountAndAddress(t *testing.T) {
	if got := TokenAmount(big.NewInt(1500000), 6, "USDC"); got != "1500000 (1.5 USDC)" {
		t.Errorf("unexpected amount %q", got)
	}
	addr := common.HexToAddress("0x6B175474E89094C44Da98b954EedeAC495271d0F")
	if got := PlainAddress(addr, "Dai"); got != addr.Hex()+" (Dai)" {
		t.Errorf("unexpected address %q", got)
	}
}

func TestRunParallel(t *testing.T) {
	a, b := 0, 0
	err, n := RunParallel(context.Background(),
		func(context.Context) error { a = 1; return nil },
		func(context.Context) error { b = 2; return nil },
	)
	if err != nil || n != 0 || a != 1 || b != 2 {
		t.Errorf("unexpected result %v %d", err, n)
	}
}

func TestRunParallelCancelsOnFailure(t *testing.T) {
	boom := errors.New("boom")
	err, n := RunParallel(context.Background(),
		func(context.Context) error { return boom },
		func(ctx context.Context) error {
			<-ctx.Done()
			return ctx.Err()
		},
	)
	if n != 2 || !errors.Is(err, boom) || !errors.Is(err, context.Canceled) {
		t.Errorf("unexpected result %v %d", err, n)
	}
}

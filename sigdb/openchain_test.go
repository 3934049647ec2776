package sigdb

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tranvictor/abiscope/contract"
)

func newOpenChainServer(t *testing.T, body string, status int) (*httptest.Server, *[]string) {
	t.Helper()
	queries := []string{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		queries = append(queries, r.URL.RawQuery)
		if r.URL.Path != "/signature-database/v1/lookup" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, &queries
}

func TestOpenChainResolveFunction(t *testing.T) {
	srv, queries := newOpenChainServer(t, `{
		"ok": true,
		"result": {
			"event": {},
			"function": {
				"0xa9059cbb": [
					{"name": "spam(address", "filtered": false},
					{"name": "many_msg_babbage(bytes1)", "filtered": true},
					{"name": "transfer(address,uint256)", "filtered": false}
				]
			}
		}
	}`, http.StatusOK)
	metrics := NewLookupMetrics(prometheus.NewRegistry())
	oc := NewOpenChain(srv.URL, WithRateLimit(100, 10), WithOpenChainMetrics(metrics))

	iface, err := oc.ResolveFunction(context.Background(), contract.Selector("transfer(address,uint256)"))
	require.NoError(t, err)
	m, found := iface.Method(contract.Selector("transfer(address,uint256)"))
	require.True(t, found)
	assert.Equal(t, "transfer", m.RawName)
	assert.Len(t, *queries, 1)
	assert.Contains(t, (*queries)[0], "function=0xa9059cbb")
	assert.Contains(t, (*queries)[0], "filter=true")
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.lookups.WithLabelValues("openchain", "function", "hit")))
}

func TestOpenChainResolveEventUsesIndexedCount(t *testing.T) {
	topic := contract.TopicHash("Transfer(address,address,uint256)")
	srv, queries := newOpenChainServer(t, `{
		"ok": true,
		"result": {
			"event": {"`+topic.Hex()+`": [{"name": "Transfer(address,address,uint256)", "filtered": false}]},
			"function": {}
		}
	}`, http.StatusOK)
	oc := NewOpenChain(srv.URL)

	iface, err := oc.ResolveEvent(context.Background(), topic, 3)
	require.NoError(t, err)
	ev, found := iface.Event(topic)
	require.True(t, found)
	indexed, nonIndexed := contract.SplitEventArguments(ev.Inputs)
	assert.Len(t, indexed, 3)
	assert.Empty(t, nonIndexed)
	assert.Contains(t, (*queries)[0], "event="+topic.Hex())
}

func TestOpenChainNotFound(t *testing.T) {
	srv, _ := newOpenChainServer(t, `{"ok": true, "result": {"event": {}, "function": {"0xdeadbeef": null}}}`, http.StatusOK)
	oc := NewOpenChain(srv.URL)

	_, err := oc.ResolveFunction(context.Background(), [4]byte{0xde, 0xad, 0xbe, 0xef})
	assert.ErrorIs(t, err, contract.ErrSignatureNotFound)

	_, err = oc.ResolveEvent(context.Background(), common.Hash{}, 0)
	assert.ErrorIs(t, err, contract.ErrSignatureNotFound)
}

func TestOpenChainErrors(t *testing.T) {
	srv, _ := newOpenChainServer(t, `{"ok": false, "error": "invalid hash"}`, http.StatusOK)
	_, err := NewOpenChain(srv.URL).Lookup(context.Background(), Function, "0x00")
	require.Error(t, err)
	assert.False(t, errors.Is(err, contract.ErrSignatureNotFound))
	assert.Contains(t, err.Error(), "invalid hash")

	srv, _ = newOpenChainServer(t, `oops`, http.StatusBadGateway)
	_, err = NewOpenChain(srv.URL).Lookup(context.Background(), Function, "0x00")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")

	srv, _ = newOpenChainServer(t, `not json`, http.StatusOK)
	_, err = NewOpenChain(srv.URL).Lookup(context.Background(), Function, "0x00")
	require.Error(t, err)
}

func TestOpenChainHonoursContext(t *testing.T) {
	srv, queries := newOpenChainServer(t, `{"ok": true, "result": {}}`, http.StatusOK)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewOpenChain(srv.URL).Lookup(ctx, Function, "0xa9059cbb")
	require.Error(t, err)
	assert.Empty(t, *queries)
}

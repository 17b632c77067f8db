package jobqueue

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestD1ExecutorExecute(t *testing.T) {
	var got d1Request
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/accounts/acct/d1/database/db/raw", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"success":true,"errors":[],"result":[{"success":true,"results":{"columns":["platform_id","channel_id"],"rows":[[0,"chan"]]}}]}`))
	}))
	defer srv.Close()

	exec, err := NewD1Executor(&D1Config{AccountID: "acct", DatabaseID: "db", APIToken: "tok", BaseURL: srv.URL})
	require.NoError(t, err)

	rs, err := exec.Execute(context.Background(), "SELECT 1 WHERE x = ?", 7)
	require.NoError(t, err)
	assert.Equal(t, "SELECT 1 WHERE x = ?", got.SQL)
	assert.Equal(t, []any{float64(7)}, got.Params)
	assert.Equal(t, []string{"platform_id", "channel_id"}, rs.Columns)
	assert.Equal(t, [][]any{{float64(0), "chan"}}, rs.Rows)
}

func TestD1ExecutorError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"success":false,"errors":[{"code":7500,"message":"near \"x\": syntax error"}],"result":[]}`))
	}))
	defer srv.Close()

	exec, err := NewD1Executor(&D1Config{AccountID: "a", DatabaseID: "d", APIToken: "t", BaseURL: srv.URL})
	require.NoError(t, err)

	_, err = exec.Execute(context.Background(), "x")
	var rpcErr *RPCError
	require.ErrorAs(t, err, &rpcErr)
	assert.Equal(t, http.StatusBadRequest, rpcErr.StatusCode)
	assert.Contains(t, rpcErr.Error(), "syntax error")
}

func TestD1ExecutorNoRows(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"success":true,"result":[{"results":{"columns":[],"rows":[]}}]}`))
	}))
	defer srv.Close()

	exec, err := NewD1Executor(&D1Config{AccountID: "a", DatabaseID: "d", APIToken: "t", BaseURL: srv.URL})
	require.NoError(t, err)
	q, err := New(exec, DefaultConfig())
	require.NoError(t, err)

	job, err := q.ClaimOldest(context.Background(), 0, 1)
	assert.NoError(t, err)
	assert.Nil(t, job)
}

package ledger

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleRow() Row {
	return Row{
		Nome:          "Ana",
		Telefone:      "11988887777",
		Servico:       "Volume brasileiro",
		PrecoTotal:    "R$ 130.00",
		Valor30:       "R$ 39.00",
		DataSessao:    "2025-10-15",
		HorarioSessao: "14:00",
		Status:        "Aprovado",
		PagamentoID:   "1234567890",
		Referencia:    "ref-1",
	}
}

func TestAppsScriptSinkAppend(t *testing.T) {
	var received Row
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	sink := NewAppsScriptSink(srv.URL, nil)
	require.NoError(t, sink.Append(context.Background(), sampleRow()))

	assert.Equal(t, "Ana", received.Nome)
	assert.Equal(t, "R$ 39.00", received.Valor30)
	assert.Equal(t, "Aprovado", received.Status)
	assert.Equal(t, "2025-10-15", received.DataSessao)
}

func TestAppsScriptSinkAcceptsRedirect(t *testing.T) {
	// Apps Script answers POSTs with a 302 to the result page.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusFound)
	}))
	defer srv.Close()

	sink := NewAppsScriptSink(srv.URL, nil)
	assert.NoError(t, sink.Append(context.Background(), sampleRow()))
}

func TestAppsScriptSinkErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	sink := NewAppsScriptSink(srv.URL, nil)
	err := sink.Append(context.Background(), sampleRow())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 429")
}

func TestAppsScriptSinkUnreachable(t *testing.T) {
	sink := NewAppsScriptSink("http://127.0.0.1:1/exec", nil)
	err := sink.Append(context.Background(), sampleRow())
	require.Error(t, err)
}

package source

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deckhandhq/deckhand/internal/domain/entities"
)

func TestGuardURL(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		wantCode entities.ErrorCode
		wantMsg  string
	}{
		{name: "public address", raw: "https://93.184.216.34/page"},
		{name: "alternate port", raw: "http://93.184.216.34:8080/x"},
		{name: "tls alternate port", raw: "https://93.184.216.34:8443/x"},
		{name: "surrounding whitespace", raw: "  https://93.184.216.34/page  "},

		{name: "ftp scheme", raw: "ftp://93.184.216.34/file", wantCode: entities.CodeURLForbidden, wantMsg: "scheme"},
		{name: "file scheme", raw: "file:///etc/passwd", wantCode: entities.CodeURLForbidden, wantMsg: "scheme"},
		{name: "unparseable", raw: "://bad", wantCode: entities.CodeInvalidFileURL},
		{name: "no host", raw: "http://", wantCode: entities.CodeInvalidFileURL, wantMsg: "no host"},

		{name: "localhost", raw: "http://localhost/x", wantCode: entities.CodeURLForbidden},
		{name: "localhost uppercase", raw: "http://LOCALHOST/x", wantCode: entities.CodeURLForbidden},
		{name: "localhost subdomain", raw: "http://api.localhost/x", wantCode: entities.CodeURLForbidden},
		{name: "mdns name", raw: "http://printer.local/x", wantCode: entities.CodeURLForbidden},

		{name: "odd port", raw: "https://93.184.216.34:9999/", wantCode: entities.CodeURLForbidden, wantMsg: "port 9999"},

		{name: "loopback v4", raw: "http://127.0.0.1/", wantCode: entities.CodeURLForbidden, wantMsg: "loopback"},
		{name: "loopback v6", raw: "http://[::1]/", wantCode: entities.CodeURLForbidden, wantMsg: "loopback"},
		{name: "mapped loopback", raw: "http://[::ffff:127.0.0.1]/", wantCode: entities.CodeURLForbidden, wantMsg: "loopback"},
		{name: "private ten net", raw: "http://10.0.0.5/", wantCode: entities.CodeURLForbidden, wantMsg: "private"},
		{name: "private rfc1918", raw: "http://192.168.1.1/admin", wantCode: entities.CodeURLForbidden, wantMsg: "private"},
		{name: "private 172 range", raw: "http://172.16.0.1/", wantCode: entities.CodeURLForbidden, wantMsg: "private"},
		{name: "cloud metadata", raw: "http://169.254.169.254/latest/meta-data", wantCode: entities.CodeURLForbidden, wantMsg: "link-local"},
		{name: "unspecified", raw: "http://0.0.0.0/", wantCode: entities.CodeURLForbidden, wantMsg: "unspecified"},
		{name: "multicast", raw: "http://239.1.2.3/", wantCode: entities.CodeURLForbidden, wantMsg: "multicast"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u, err := GuardURL(context.Background(), tt.raw)
			if tt.wantCode == "" {
				require.NoError(t, err)
				assert.NotNil(t, u)
				return
			}

			require.Error(t, err)
			assert.True(t, entities.IsCode(err, tt.wantCode), err.Error())
			if tt.wantMsg != "" {
				assert.ErrorContains(t, err, tt.wantMsg)
			}
		})
	}
}

package services

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/jackc/pgconn"
	"github.com/poofware/fleet-service/internal/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInsertError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantCode   string
		wantStatus int
	}{
		{"unique violation", &pgconn.PgError{Code: "23505", ConstraintName: "vehicles_matricule_key"}, utils.ErrCodeConflict, http.StatusConflict},
		{"wrapped unique violation", fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505"}), utils.ErrCodeConflict, http.StatusConflict},
		{"foreign key violation", &pgconn.PgError{Code: "23503"}, utils.ErrCodeInternal, http.StatusInternalServerError},
		{"connection lost", errors.New("conn closed"), utils.ErrCodeInternal, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := insertError("matricule", "vehicle", tt.err)
			var appErr *utils.AppError
			require.ErrorAs(t, err, &appErr)
			assert.Equal(t, tt.wantCode, appErr.Code)
			assert.Equal(t, tt.wantStatus, appErr.StatusCode)
			if tt.wantCode == utils.ErrCodeConflict {
				assert.Equal(t, "matricule", appErr.Field)
			}
		})
	}
}

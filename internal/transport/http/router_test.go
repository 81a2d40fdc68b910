package httptransport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"probo/internal/domain"
	"probo/internal/ledger"
	"probo/internal/mint"
	"probo/internal/transport/http/mocks"
	id "probo/pkg/domain"
	dErrors "probo/pkg/domain-errors"
)

//go:generate mockgen -source=router.go -destination=mocks/transport_mocks.go -package=mocks

type TransportSuite struct {
	suite.Suite
	ctx context.Context
}

func (s *TransportSuite) SetupSuite() {
	s.ctx = context.Background()
}

func TestTransportSuite(t *testing.T) {
	suite.Run(t, new(TransportSuite))
}

func newUUID(t *testing.T) uuid.UUID {
	t.Helper()
	return uuid.New()
}

type testMocks struct {
	ledger   *mocks.MockLedgerService
	mint     *mocks.MockMintService
	recovery *mocks.MockRecoveryService
	security *mocks.MockSecurityService
}

func newTestRouter(t *testing.T, checks map[string]HealthChecker) (http.Handler, testMocks) {
	t.Helper()
	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)

	tm := testMocks{
		ledger:   mocks.NewMockLedgerService(ctrl),
		mint:     mocks.NewMockMintService(ctrl),
		recovery: mocks.NewMockRecoveryService(ctrl),
		security: mocks.NewMockSecurityService(ctrl),
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := NewHandler(tm.ledger, tm.mint, tm.recovery, tm.security, checks, logger)
	return NewRouter(h), tm
}

func (s *TransportSuite) TestStoreFootprint() {
	s.Run("stores and returns value and root", func() {
		router, tm := newTestRouter(s.T(), nil)
		fpID := id.FootprintID(newUUID(s.T()))
		tm.ledger.EXPECT().
			Store(gomock.Any(), []byte("KYC passed for user U1"), domain.DataTypeCompliance, id.OwnerID("org-7")).
			Return(&ledger.StoreResult{
				FootprintID:      fpID,
				InformationValue: big.NewInt(7618),
				MerkleRoot:       "ab12",
			}, nil)

		body, err := json.Marshal(storeFootprintRequest{
			Data:     "KYC passed for user U1",
			DataType: "COMPLIANCE_DATA",
			OwnerID:  "org-7",
		})
		require.NoError(s.T(), err)

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/ledger/footprints", bytes.NewReader(body)))

		assert.Equal(s.T(), http.StatusCreated, w.Code)
		var resp storeFootprintResponse
		require.NoError(s.T(), json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(s.T(), fpID.String(), resp.FootprintID)
		assert.Equal(s.T(), "7618", resp.InformationValue)
		assert.Equal(s.T(), "ab12", resp.MerkleRoot)
	})

	s.Run("invalid body is a bad request", func() {
		router, _ := newTestRouter(s.T(), nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/ledger/footprints", bytes.NewReader([]byte("{"))))
		assert.Equal(s.T(), http.StatusBadRequest, w.Code)
	})

	s.Run("empty owner is rejected before the service", func() {
		router, _ := newTestRouter(s.T(), nil)
		body := []byte(`{"data":"x","data_type":"TELEMETRY","owner_id":""}`)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/ledger/footprints", bytes.NewReader(body)))
		assert.Equal(s.T(), http.StatusBadRequest, w.Code)
	})

	s.Run("service validation error surfaces", func() {
		router, tm := newTestRouter(s.T(), nil)
		tm.ledger.EXPECT().
			Store(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
			Return(nil, dErrors.New(dErrors.CodeInvalidInput, "unknown data type"))

		body := []byte(`{"data":"x","data_type":"BOGUS","owner_id":"org-7"}`)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/ledger/footprints", bytes.NewReader(body)))
		assert.Equal(s.T(), http.StatusBadRequest, w.Code)

		var resp map[string]string
		require.NoError(s.T(), json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(s.T(), "invalid_input", resp["error"])
	})
}

func (s *TransportSuite) TestMintCoin() {
	fpID := id.FootprintID(newUUID(s.T()))
	coinID := id.CoinID(newUUID(s.T()))

	s.Run("mints a coin", func() {
		router, tm := newTestRouter(s.T(), nil)
		tm.mint.EXPECT().
			Mint(gomock.Any(), fpID, id.OwnerID("org-7")).
			Return(&mint.Result{
				CoinID:      coinID,
				FootprintID: fpID,
				Owner:       id.OwnerID("org-7"),
				Value:       big.NewInt(7618),
			}, nil)

		body, err := json.Marshal(mintCoinRequest{FootprintID: fpID.String(), OwnerID: "org-7"})
		require.NoError(s.T(), err)

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/ledger/coins", bytes.NewReader(body)))

		assert.Equal(s.T(), http.StatusCreated, w.Code)
		var resp mintCoinResponse
		require.NoError(s.T(), json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(s.T(), coinID.String(), resp.CoinID)
		assert.Equal(s.T(), "7618", resp.Value)
	})

	s.Run("double mint is a conflict", func() {
		router, tm := newTestRouter(s.T(), nil)
		tm.mint.EXPECT().
			Mint(gomock.Any(), fpID, id.OwnerID("org-7")).
			Return(nil, dErrors.New(dErrors.CodeConflict, "footprint already minted"))

		body, err := json.Marshal(mintCoinRequest{FootprintID: fpID.String(), OwnerID: "org-7"})
		require.NoError(s.T(), err)

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/ledger/coins", bytes.NewReader(body)))
		assert.Equal(s.T(), http.StatusConflict, w.Code)
	})

	s.Run("foreign owner is unauthorized", func() {
		router, tm := newTestRouter(s.T(), nil)
		tm.mint.EXPECT().
			Mint(gomock.Any(), fpID, id.OwnerID("org-8")).
			Return(nil, dErrors.New(dErrors.CodeUnauthorized, "caller does not own footprint"))

		body, err := json.Marshal(mintCoinRequest{FootprintID: fpID.String(), OwnerID: "org-8"})
		require.NoError(s.T(), err)

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/ledger/coins", bytes.NewReader(body)))
		assert.Equal(s.T(), http.StatusUnauthorized, w.Code)
	})

	s.Run("malformed footprint id is rejected", func() {
		router, _ := newTestRouter(s.T(), nil)
		body := []byte(`{"footprint_id":"not-a-uuid","owner_id":"org-7"}`)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/ledger/coins", bytes.NewReader(body)))
		assert.Equal(s.T(), http.StatusBadRequest, w.Code)
	})
}

func (s *TransportSuite) TestProof() {
	fpID := id.FootprintID(newUUID(s.T()))

	s.Run("returns the inclusion path", func() {
		router, tm := newTestRouter(s.T(), nil)
		tm.ledger.EXPECT().
			Proof(gomock.Any(), fpID).
			Return(&ledger.ProofResult{
				FootprintID: fpID,
				Commitment:  "cafe",
				Path:        []domain.MerkleProofStep{{Hash: "beef", Left: true}},
				Root:        "f00d",
			}, nil)

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ledger/footprints/"+fpID.String()+"/proof", nil))

		assert.Equal(s.T(), http.StatusOK, w.Code)
		var resp proofResponse
		require.NoError(s.T(), json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(s.T(), "f00d", resp.Root)
		require.Len(s.T(), resp.Path, 1)
		assert.True(s.T(), resp.Path[0].Left)
	})

	s.Run("unknown footprint is 404", func() {
		router, tm := newTestRouter(s.T(), nil)
		tm.ledger.EXPECT().
			Proof(gomock.Any(), fpID).
			Return(nil, dErrors.New(dErrors.CodeNotFound, "footprint not found"))

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ledger/footprints/"+fpID.String()+"/proof", nil))
		assert.Equal(s.T(), http.StatusNotFound, w.Code)
	})
}

func (s *TransportSuite) TestStats() {
	router, tm := newTestRouter(s.T(), nil)
	tm.ledger.EXPECT().Stats(gomock.Any()).Return(&domain.Stats{
		TotalSupply:       "7618",
		CirculatingSupply: "7618",
		MerkleRoot:        "ab12",
	}, nil)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ledger/stats", nil))

	assert.Equal(s.T(), http.StatusOK, w.Code)
	var resp domain.Stats
	require.NoError(s.T(), json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(s.T(), "7618", resp.TotalSupply)
}

func (s *TransportSuite) TestStatusEndpoints() {
	s.Run("security status", func() {
		router, tm := newTestRouter(s.T(), nil)
		tm.security.EXPECT().Status(gomock.Any()).Return(&domain.SecurityStatus{SecurityScore: 95}, nil)

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/security/status", nil))
		assert.Equal(s.T(), http.StatusOK, w.Code)

		var resp domain.SecurityStatus
		require.NoError(s.T(), json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(s.T(), float64(95), resp.SecurityScore)
	})

	s.Run("recovery status", func() {
		router, tm := newTestRouter(s.T(), nil)
		tm.recovery.EXPECT().Status(gomock.Any()).Return(&domain.RecoveryStatus{QueueLength: 3, SuccessRate: 0.5}, nil)

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/recovery/status", nil))
		assert.Equal(s.T(), http.StatusOK, w.Code)

		var resp domain.RecoveryStatus
		require.NoError(s.T(), json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(s.T(), 3, resp.QueueLength)
	})
}

func (s *TransportSuite) TestHealthz() {
	s.Run("no checks reports ok", func() {
		router, _ := newTestRouter(s.T(), nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
		assert.Equal(s.T(), http.StatusOK, w.Code)
	})

	s.Run("failing dependency degrades", func() {
		ctrl := gomock.NewController(s.T())
		defer ctrl.Finish()
		failing := mocks.NewMockHealthChecker(ctrl)
		failing.EXPECT().Health(gomock.Any()).Return(errors.New("dial tcp: refused"))

		router, _ := newTestRouter(s.T(), map[string]HealthChecker{"redis": failing})
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
		assert.Equal(s.T(), http.StatusServiceUnavailable, w.Code)

		var resp healthResponse
		require.NoError(s.T(), json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(s.T(), "degraded", resp.Status)
	})
}

package httpserver

import (
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pscheid92/ckksgate/internal/domain"
	apperrors "github.com/pscheid92/ckksgate/internal/platform/errors"
)

type encryptRequest struct {
	Values []float64 `json:"values"`
	Name   string    `json:"name,omitempty"`
}

type encryptResponse struct {
	Encrypted   string `json:"encrypted"`
	Context     string `json:"context"`
	Length      int    `json:"length"`
	Fingerprint string `json:"fingerprint"`
}

type storeResponse struct {
	SavedFiles  []string  `json:"saved_files"`
	Name        string    `json:"name"`
	Length      int       `json:"length"`
	Fingerprint string    `json:"fingerprint"`
	StoredAt    time.Time `json:"stored_at"`
}

type contextResponse struct {
	Context         string    `json:"context"`
	Fingerprint     string    `json:"fingerprint"`
	Mode            string    `json:"mode"`
	LogN            int       `json:"log_n"`
	Slots           int       `json:"slots"`
	MaxLevel        int       `json:"max_level"`
	LogDefaultScale int       `json:"log_default_scale"`
	LogQ            []int     `json:"log_q"`
	LogP            []int     `json:"log_p"`
	GaloisKeys      int       `json:"galois_keys"`
	CreatedAt       time.Time `json:"created_at,omitzero"`
}

type artifactResponse struct {
	Name      string `json:"name"`
	Encrypted string `json:"encrypted"`
	Context   string `json:"context"`
}

func (s *Server) handleRoot(c echo.Context) error {
	response := map[string]string{
		"status":  "ok",
		"message": "CKKS encryption service is running",
	}
	if err := c.JSON(http.StatusOK, response); err != nil {
		return fmt.Errorf("failed to write root response: %w", err)
	}
	return nil
}

func bindEncryptRequest(c echo.Context) (*encryptRequest, error) {
	var req encryptRequest
	if err := c.Bind(&req); err != nil {
		return nil, apperrors.ValidationError(`request body must be JSON of the form {"values": [numbers]}`)
	}
	return &req, nil
}

func (s *Server) handleEncrypt(c echo.Context) error {
	req, err := bindEncryptRequest(c)
	if err != nil {
		return err
	}

	env, err := s.app.Encrypt(c.Request().Context(), req.Values)
	if err != nil {
		return err
	}

	if err := c.JSON(http.StatusOK, encryptResponse{
		Encrypted:   env.Encrypted,
		Context:     env.Context,
		Length:      env.Length,
		Fingerprint: env.Fingerprint,
	}); err != nil {
		return fmt.Errorf("failed to write encrypt response: %w", err)
	}
	return nil
}

func (s *Server) handleEncryptAndStore(c echo.Context) error {
	req, err := bindEncryptRequest(c)
	if err != nil {
		return err
	}

	env, stored, err := s.app.EncryptAndStore(c.Request().Context(), req.Values, req.Name)
	if err != nil {
		return err
	}

	if err := c.JSON(http.StatusOK, storeResponse{
		SavedFiles:  stored.Files,
		Name:        stored.Name,
		Length:      env.Length,
		Fingerprint: env.Fingerprint,
		StoredAt:    stored.StoredAt,
	}); err != nil {
		return fmt.Errorf("failed to write store response: %w", err)
	}
	return nil
}

func (s *Server) handleContext(c echo.Context) error {
	published, err := s.app.PublicContext(c.Request().Context())
	if err != nil {
		return err
	}

	if err := c.JSON(http.StatusOK, newContextResponse(published)); err != nil {
		return fmt.Errorf("failed to write context response: %w", err)
	}
	return nil
}

func newContextResponse(p *domain.PublishedContext) contextResponse {
	d := p.Info.Context
	return contextResponse{
		Context:         p.Context,
		Fingerprint:     d.Fingerprint,
		Mode:            p.Info.Mode,
		LogN:            d.LogN,
		Slots:           d.Slots,
		MaxLevel:        d.MaxLevel,
		LogDefaultScale: d.LogDefaultScale,
		LogQ:            d.LogQ,
		LogP:            d.LogP,
		GaloisKeys:      d.GaloisKeys,
		CreatedAt:       p.Info.CreatedAt,
	}
}

func (s *Server) handleArtifacts(c echo.Context) error {
	pair, err := s.app.LoadArtifacts(c.Request().Context(), c.Param("name"))
	if err != nil {
		return err
	}

	if err := c.JSON(http.StatusOK, artifactResponse{
		Name:      pair.Name,
		Encrypted: pair.Encrypted,
		Context:   pair.Context,
	}); err != nil {
		return fmt.Errorf("failed to write artifact response: %w", err)
	}
	return nil
}

package server

import (
	"crypto/subtle"
	"net/http"
	"strings"

	gin "github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/etnz/timberline"
	"github.com/etnz/timberline/renderer"
	"github.com/etnz/timberline/store"
	"github.com/etnz/timberline/tokens"
)

// --- Snapshots ---

func (s *Server) getSnapshot(name store.Name) gin.HandlerFunc {
	return func(cn *gin.Context) {
		snap, err := s.Store.Get(cn.Request.Context(), name)
		if err != nil {
			s.internalError(cn, "Get "+string(name), err, err.Error())
			return
		}
		if snap.Positions == nil {
			snap.Positions = []timberline.Position{}
		}
		cn.JSON(http.StatusOK, snap)
	}
}

type changesResponse struct {
	Current   timberline.Snapshot   `json:"current"`
	Previous  timberline.Snapshot   `json:"previous"`
	Positions []positionChange      `json:"positions"`
	Added     []timberline.Position `json:"added"`
	Exited    []timberline.Position `json:"exited"`
}

// positionChange is the change of a position of the current snapshot. Values
// are in thousands of dollars, absent when unknown.
type positionChange struct {
	Symbol                 string   `json:"symbol"`
	Added                  bool     `json:"added,omitempty"`
	PercentageDelta        *float64 `json:"percentageDelta,omitempty"`
	ValueThousands         *float64 `json:"valueThousands,omitempty"`
	PreviousValueThousands *float64 `json:"previousValueThousands,omitempty"`
	ValueDeltaThousands    *float64 `json:"valueDeltaThousands,omitempty"`
}

func newChangesResponse(r timberline.Reconciliation) changesResponse {
	resp := changesResponse{
		Current:   r.Current,
		Previous:  r.Previous,
		Positions: make([]positionChange, 0, len(r.Current.Positions)),
		Added:     r.Added(),
		Exited:    r.Exited,
	}
	if resp.Current.Positions == nil {
		resp.Current.Positions = []timberline.Position{}
	}
	if resp.Previous.Positions == nil {
		resp.Previous.Positions = []timberline.Position{}
	}
	for _, p := range r.Current.Positions {
		d, ok := r.Delta(p.Symbol)
		if !ok {
			pc := positionChange{Symbol: p.Symbol, Added: true}
			if v, ok := timberline.DerivedValue(p, r.Current.TotalValueThousands); ok {
				pc.ValueThousands = nullFloat(decimal.NewNullDecimal(v))
			}
			resp.Positions = append(resp.Positions, pc)
			continue
		}
		resp.Positions = append(resp.Positions, positionChange{
			Symbol:                 p.Symbol,
			PercentageDelta:        nullFloat(d.PercentageDelta),
			ValueThousands:         nullFloat(d.CurrentValue),
			PreviousValueThousands: nullFloat(d.PreviousValue),
			ValueDeltaThousands:    nullFloat(d.ValueDelta),
		})
	}
	return resp
}

func nullFloat(d decimal.NullDecimal) *float64 {
	if !d.Valid {
		return nil
	}
	f := d.Decimal.InexactFloat64()
	return &f
}

func (s *Server) getChanges(cn *gin.Context) {
	r, err := store.Reconcile(cn.Request.Context(), s.Store)
	if err != nil {
		s.internalError(cn, "reconcile", err, err.Error())
		return
	}
	cn.JSON(http.StatusOK, newChangesResponse(r))
}

// getReport serves the changes report, in HTML or in markdown with
// ?format=md.
func (s *Server) getReport(cn *gin.Context) {
	r, err := store.Reconcile(cn.Request.Context(), s.Store)
	if err != nil {
		s.internalError(cn, "reconcile", err, err.Error())
		return
	}
	changes := renderer.NewChanges(r, s.opts.ManagerName, renderer.DefaultTop)
	md := renderer.RenderChanges(changes, renderer.ChangesRenderOptions{})
	if strings.EqualFold(cn.Query("format"), "md") {
		cn.Data(http.StatusOK, "text/markdown; charset=utf-8", []byte(md))
		return
	}
	body, err := renderer.ToHTML(md)
	if err != nil {
		s.internalError(cn, "ToHTML", err, "Failed to render the report")
		return
	}
	title := strings.TrimSpace(s.opts.ManagerName + " 13F positions")
	cn.Data(http.StatusOK, "text/html; charset=utf-8", []byte(renderer.Page(title, body)))
}

// --- Push tokens ---

func (s *Server) requireAdmin(cn *gin.Context) {
	if s.opts.AdminAPIKey == "" {
		s.Logger.Warn("ADMIN_API_KEY is not set; rejecting admin request")
		s.fail(cn, http.StatusInternalServerError, "Server misconfiguration")
		return
	}
	provided := cn.GetHeader(AdminHeader)
	if subtle.ConstantTimeCompare([]byte(provided), []byte(s.opts.AdminAPIKey)) != 1 {
		s.fail(cn, http.StatusUnauthorized, "Unauthorized")
		return
	}
	cn.Next()
}

type addTokenRequest struct {
	Token    string `json:"token"`
	Platform string `json:"platform"`
}

func (s *Server) addToken(cn *gin.Context) {
	var req addTokenRequest
	if err := cn.ShouldBindJSON(&req); err != nil || !tokens.Valid(req.Token) {
		s.fail(cn, http.StatusBadRequest, "Invalid or missing token")
		return
	}
	t := tokens.Token{
		Token:        req.Token,
		Platform:     tokens.ParsePlatform(req.Platform),
		RegisteredAt: s.opts.Now().UTC(),
	}
	if err := s.Tokens.Add(cn.Request.Context(), t); err != nil {
		s.internalError(cn, "Add", err, "Failed to add push token")
		return
	}
	s.Logger.Info("push token registered", zap.String("platform", string(t.Platform)))
	cn.Status(http.StatusNoContent)
}

func (s *Server) listTokens(cn *gin.Context) {
	list, err := s.Tokens.List(cn.Request.Context())
	if err != nil {
		s.internalError(cn, "List", err, "Failed to list registered push tokens")
		return
	}
	if list == nil {
		list = []tokens.Token{}
	}
	cn.JSON(http.StatusOK, gin.H{"tokens": list})
}

func (s *Server) countTokens(cn *gin.Context) {
	n, err := s.Tokens.Count(cn.Request.Context())
	if err != nil {
		s.internalError(cn, "Count", err, "Failed to read registered push tokens")
		return
	}
	cn.JSON(http.StatusOK, gin.H{"count": n})
}

func (s *Server) deleteToken(cn *gin.Context) {
	id := strings.TrimSpace(cn.Param("id"))
	if id == "" {
		s.fail(cn, http.StatusBadRequest, "Missing token id")
		return
	}
	if err := s.Tokens.Delete(cn.Request.Context(), id); err != nil {
		s.internalError(cn, "Delete", err, "Failed to delete push token")
		return
	}
	cn.Status(http.StatusNoContent)
}

func (s *Server) deleteAllTokens(cn *gin.Context) {
	if err := s.Tokens.DeleteAll(cn.Request.Context()); err != nil {
		s.internalError(cn, "DeleteAll", err, "Failed to delete all push tokens")
		return
	}
	cn.Status(http.StatusNoContent)
}

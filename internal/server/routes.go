package server

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/danmuck/iectl/internal/bindings"
	"github.com/danmuck/iectl/internal/observability"
	"github.com/danmuck/iectl/internal/protocol/frame"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

var (
	ErrEmptyBody    = errors.New("empty request body")
	ErrBodyTooLarge = errors.New("request body too large")
	ErrBadHex       = errors.New("pdu is not valid hex")
)

type decodeRequest struct {
	PDU string `json:"pdu"`
}

type decodeResponse struct {
	RequestID string `json:"request_id"`
	bindings.Outcome
}

type streamResponse struct {
	RequestID string             `json:"request_id"`
	Records   []bindings.Outcome `json:"records"`
	Accepted  int                `json:"accepted"`
	Rejected  int                `json:"rejected"`
	Error     string             `json:"error,omitempty"`
}

// RegisterRoutes installs the gate routes. Later calls are no-ops.
func (g *Gate) RegisterRoutes() {
	if !g.routesOn.CompareAndSwap(false, true) {
		return
	}
	r := g.router
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"uptime":  time.Since(g.Appeared).String(),
			"service": g.Name,
			"version": Version,
		})
	})

	r.GET("/ready", func(c *gin.Context) {
		status := http.StatusOK
		if !g.ready.Load() {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, gin.H{
			"ready":   g.ready.Load(),
			"uptime":  time.Since(g.Appeared).String(),
			"service": g.Name,
			"version": Version,
		})
	})

	if g.metrics {
		r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}

	r.GET("/catalog", func(c *gin.Context) {
		reg := g.codec.Registry()
		c.JSON(http.StatusOK, gin.H{
			"ies":        reg.ListIEs(),
			"procedures": reg.ListProcedures(),
		})
	})

	r.POST("/decode", g.handleDecode)
	r.POST("/decode/stream", g.handleDecodeStream)
}

func (g *Gate) handleDecode(c *gin.Context) {
	pdu, err := g.readPDU(c)
	if err != nil {
		c.JSON(errorStatus(err), gin.H{"request_id": observability.GetRequestID(c), "error": err.Error()})
		return
	}
	out := g.decode(pdu, wantIndication(c))
	status := http.StatusOK
	if out.Rejected() {
		status = http.StatusUnprocessableEntity
	}
	c.JSON(status, decodeResponse{RequestID: observability.GetRequestID(c), Outcome: out})
}

func (g *Gate) handleDecodeStream(c *gin.Context) {
	limit := (int64(g.limits.MaxRecordBytes) + frame.HeaderLen) * int64(g.limits.MaxRecords)
	body := http.MaxBytesReader(c.Writer, c.Request.Body, limit)
	indicate := wantIndication(c)

	resp := streamResponse{RequestID: observability.GetRequestID(c), Records: []bindings.Outcome{}}
	_, err := frame.Each(body, g.limits, func(i int, pdu []byte) error {
		out := g.decode(pdu, indicate)
		out.Index = i
		if out.Rejected() {
			resp.Rejected++
		} else {
			resp.Accepted++
		}
		resp.Records = append(resp.Records, out)
		return nil
	})
	if err != nil {
		if isTooLarge(err) {
			err = ErrBodyTooLarge
		}
		resp.Error = err.Error()
		log.Warn().Str("request_id", resp.RequestID).Err(err).Int("records", len(resp.Records)).Msg("gate stream framing failed")
		c.JSON(errorStatus(err), resp)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (g *Gate) decode(pdu []byte, indicate bool) bindings.Outcome {
	out := bindings.Decode(g.codec, pdu, indicate)
	if g.metrics {
		observability.RecordDecode(out.Message, decodeErr(out), out.Duration)
	}
	return out
}

// decodeErr is the rejection an outcome carries, nil for a usable message.
func decodeErr(out bindings.Outcome) error {
	switch {
	case out.Report != nil:
		return out.Report
	case out.Message == nil:
		return errors.New(out.Error)
	}
	return nil
}

// readPDU accepts raw octets, or a JSON object {"pdu": "<hex>"}.
func (g *Gate) readPDU(c *gin.Context) ([]byte, error) {
	jsonBody := strings.HasPrefix(c.ContentType(), "application/json")
	limit := g.maxBody
	if jsonBody {
		limit = 2*g.maxBody + 64
	}
	raw, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, limit))
	if err != nil {
		if isTooLarge(err) {
			return nil, ErrBodyTooLarge
		}
		return nil, err
	}
	if !jsonBody {
		if len(raw) == 0 {
			return nil, ErrEmptyBody
		}
		return raw, nil
	}

	var req decodeRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		return nil, fmt.Errorf("decode request: %w", err)
	}
	pdu, err := hex.DecodeString(strings.TrimSpace(req.PDU))
	if err != nil {
		return nil, ErrBadHex
	}
	if len(pdu) == 0 {
		return nil, ErrEmptyBody
	}
	return pdu, nil
}

func wantIndication(c *gin.Context) bool {
	v, err := strconv.ParseBool(c.DefaultQuery("indication", "false"))
	return err == nil && v
}

func isTooLarge(err error) bool {
	var mbe *http.MaxBytesError
	return errors.As(err, &mbe) || errors.Is(err, frame.ErrRecordTooLarge) || errors.Is(err, frame.ErrTooManyRecords)
}

func errorStatus(err error) int {
	if errors.Is(err, ErrBodyTooLarge) || isTooLarge(err) {
		return http.StatusRequestEntityTooLarge
	}
	return http.StatusBadRequest
}

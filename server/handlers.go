// Copyright (c) 2025 BVK Chaitanya

package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"

	"github.com/bvk/vinbot/api"
	"github.com/bvk/vinbot/config"
)

// httpStatus maps error sentinels to http status codes.
func httpStatus(err error) int {
	var verr *config.ValidationError
	switch {
	case errors.As(err, &verr), errors.Is(err, os.ErrInvalid):
		return http.StatusBadRequest
	case errors.Is(err, os.ErrExist):
		return http.StatusConflict
	case errors.Is(err, os.ErrNotExist):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func httpPostJSONHandler[REQ, RESP any](fun func(context.Context, *REQ) (*RESP, error)) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "only POST method is supported", http.StatusMethodNotAllowed)
			return
		}
		req := new(REQ)
		if err := json.NewDecoder(r.Body).Decode(req); err != nil {
			http.Error(w, fmt.Sprintf("could not decode request: %v", err), http.StatusBadRequest)
			return
		}
		resp, err := fun(r.Context(), req)
		if err != nil {
			slog.Warn("api request failed", "path", r.URL.Path, "err", err)
			http.Error(w, err.Error(), httpStatus(err))
			return
		}
		w.Header().Set("content-type", "application/json")
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			slog.Error("could not encode api response (ignored)", "path", r.URL.Path, "err", err)
		}
	})
}

func (s *Server) loadConfig(fpath string) (*config.Config, error) {
	if len(fpath) == 0 {
		fpath = s.opts.ConfigFile
	}
	if len(fpath) == 0 {
		return nil, fmt.Errorf("no config file is configured: %w", os.ErrInvalid)
	}
	if !filepath.IsAbs(fpath) {
		return nil, fmt.Errorf("config file path %q must be absolute: %w", fpath, os.ErrInvalid)
	}
	return config.Load(fpath)
}

func (s *Server) doStart(ctx context.Context, req *api.BotStartRequest) (*api.BotStartResponse, error) {
	if len(req.ConfigFile) != 0 {
		if err := req.Check(); err != nil {
			return nil, err
		}
	}
	cfg, err := s.loadConfig(req.ConfigFile)
	if err != nil {
		return nil, err
	}
	if req.Debug != nil {
		cfg.Bot.Debug = *req.Debug
	}
	if req.Headless != nil {
		cfg.Bot.Headless = *req.Headless
	}
	if req.MaxAttempts > 0 {
		cfg.Bot.MaxAttempts = req.MaxAttempts
	}

	id, err := s.bot.Start(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return &api.BotStartResponse{RunID: id}, nil
}

func (s *Server) doStop(ctx context.Context, req *api.BotStopRequest) (*api.BotStopResponse, error) {
	if err := s.bot.Stop(ctx); err != nil {
		return nil, err
	}
	return &api.BotStopResponse{Run: api.NewRunInfo(s.bot.Status().Run)}, nil
}

func (s *Server) doStatus(ctx context.Context, req *api.BotStatusRequest) (*api.BotStatusResponse, error) {
	status := s.bot.Status()
	resp := &api.BotStatusResponse{
		Running:              status.Running,
		AwaitingConfirmation: status.AwaitingConfirmation,
		ServerStartTime:      s.startTime,
		Run:                  api.NewRunInfo(status.Run),
	}
	return resp, nil
}

func (s *Server) doConfirm(ctx context.Context, req *api.BotConfirmRequest) (*api.BotConfirmResponse, error) {
	if err := s.bot.Confirm(req.Approve); err != nil {
		return nil, err
	}
	return &api.BotConfirmResponse{}, nil
}

func (s *Server) doHistory(ctx context.Context, req *api.BotHistoryRequest) (*api.BotHistoryResponse, error) {
	if req.Limit < 0 {
		return nil, fmt.Errorf("limit cannot be negative: %w", os.ErrInvalid)
	}
	runs, err := s.bot.History(ctx, req.Limit)
	if err != nil {
		return nil, err
	}
	resp := new(api.BotHistoryResponse)
	for _, run := range runs {
		resp.Runs = append(resp.Runs, api.NewRunInfo(run))
	}
	return resp, nil
}

package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/smazurov/videosqueeze/internal/api/models"
	"github.com/smazurov/videosqueeze/internal/settings"
	"github.com/smazurov/videosqueeze/internal/version"
)

type versioned interface {
	Version() string
}

func (s *Server) engineVersion() string {
	if v, ok := s.driver.Engine().(versioned); ok {
		return v.Version()
	}
	return ""
}

func (s *Server) engineData() models.EngineData {
	state, loadErr := s.driver.EngineState()
	return models.EngineData{State: state, Error: loadErr, Version: s.engineVersion()}
}

func (s *Server) registerSystemRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "health-check",
		Method:      http.MethodGet,
		Path:        "/api/health",
		Summary:     "Health",
		Description: "Check API health status",
		Tags:        []string{"system"},
		Security:    []map[string][]string{},
	}, func(context.Context, *struct{}) (*models.HealthResponse, error) {
		return &models.HealthResponse{
			Body: models.HealthData{Status: "ok", Message: "API is healthy"},
		}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "get-version",
		Method:      http.MethodGet,
		Path:        "/api/version",
		Summary:     "Version",
		Description: "Application build information and the engine version once loaded",
		Tags:        []string{"system"},
		Security:    []map[string][]string{},
	}, func(context.Context, *struct{}) (*models.VersionResponse, error) {
		info := version.Get()
		return &models.VersionResponse{
			Body: models.VersionData{
				Version:   info.Version,
				GitCommit: info.GitCommit,
				BuildDate: info.BuildDate,
				BuildID:   info.BuildID,
				Modified:  info.Modified,
				GoVersion: info.GoVersion,
				Compiler:  info.Compiler,
				Platform:  info.Platform,
				Engine:    s.engineVersion(),
			},
		}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "get-options",
		Method:      http.MethodGet,
		Path:        "/api/options",
		Summary:     "Settings Options",
		Description: "Values the settings panel offers for each field",
		Tags:        []string{"settings"},
		Security:    withAuth(),
		Errors:      []int{401},
	}, func(context.Context, *struct{}) (*models.OptionsResponse, error) {
		return &models.OptionsResponse{Body: settings.GetCatalog()}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "list-presets",
		Method:      http.MethodGet,
		Path:        "/api/presets",
		Summary:     "List Presets",
		Description: "Built-in presets plus those from the presets file",
		Tags:        []string{"settings"},
		Security:    withAuth(),
		Errors:      []int{401},
	}, func(context.Context, *struct{}) (*models.PresetListResponse, error) {
		presets := s.presets.List()
		return &models.PresetListResponse{
			Body: models.PresetListData{Presets: presets, Count: len(presets)},
		}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "get-engine",
		Method:      http.MethodGet,
		Path:        "/api/engine",
		Summary:     "Engine State",
		Description: "Whether the engine is idle, loading or ready",
		Tags:        []string{"engine"},
		Security:    withAuth(),
		Errors:      []int{401},
	}, func(context.Context, *struct{}) (*models.EngineResponse, error) {
		return &models.EngineResponse{Body: s.engineData()}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "load-engine",
		Method:      http.MethodPost,
		Path:        "/api/engine/load",
		Summary:     "Load Engine",
		Description: "Load the engine now instead of on the first drop. Blocks until loaded.",
		Tags:        []string{"engine"},
		Security:    withAuth(),
		Errors:      []int{401, 503},
	}, func(ctx context.Context, _ *struct{}) (*models.EngineResponse, error) {
		if err := s.driver.EnsureLoaded(ctx); err != nil {
			return nil, huma.Error503ServiceUnavailable("engine failed to load", err)
		}
		return &models.EngineResponse{Body: s.engineData()}, nil
	})
}

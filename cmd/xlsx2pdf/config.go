// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/xlsx2pdf/internal/convert"
	"github.com/pdiddy/xlsx2pdf/internal/inputs"
	"github.com/pdiddy/xlsx2pdf/internal/redact"
	"github.com/pdiddy/xlsx2pdf/pkg/types"
)

// Config keys. Environment variables use the XLSX2PDF_ prefix with dots
// replaced by underscores, e.g. XLSX2PDF_ENGINE_BACKEND.
const (
	keyEngineBackend      = "engine.backend"
	keySofficeBin         = "engine.soffice_bin"
	keyImage              = "engine.image"
	keyGotenbergURL       = "engine.gotenberg_url"
	keyRenderTimeout      = "engine.render_timeout"
	keyHTTPTimeout        = "engine.http.timeout"
	keyHTTPUserAgent      = "engine.http.user_agent"
	keyHTTPMaxRetries     = "engine.http.max_retries"
	keyKeyword            = "redaction.keyword"
	keyIntermediateSuffix = "redaction.intermediate_suffix"
	keyOutputDir          = "batch.output_dir"
	keyContinueOnError    = "batch.continue_on_error"
	keyCompleteOnCancel   = "batch.complete_on_cancel"
	keySeparator          = "batch.separator"
	keyHistoryDir         = "history.dir"
	keyHistoryMaxResults  = "history.max_results"
	keyServerAddr         = "server.addr"
	keyShutdownTimeout    = "server.shutdown_timeout"
)

func setDefaults(v *viper.Viper) {
	v.SetDefault(keyEngineBackend, string(types.BackendSoffice))
	v.SetDefault(keySofficeBin, "soffice")
	v.SetDefault(keyImage, "libreoffice:latest")
	v.SetDefault(keyGotenbergURL, "http://localhost:3000")
	v.SetDefault(keyRenderTimeout, "2m")
	v.SetDefault(keyHTTPTimeout, "3m")
	v.SetDefault(keyHTTPUserAgent, "xlsx2pdf/"+version)
	v.SetDefault(keyHTTPMaxRetries, 5)
	v.SetDefault(keyKeyword, redact.DefaultKeyword)
	v.SetDefault(keyIntermediateSuffix, convert.DefaultIntermediateSuffix)
	v.SetDefault(keyOutputDir, "pdf_output")
	v.SetDefault(keyContinueOnError, true)
	v.SetDefault(keyCompleteOnCancel, true)
	v.SetDefault(keySeparator, inputs.DefaultSeparator)
	v.SetDefault(keyHistoryDir, ".xlsx2pdf")
	v.SetDefault(keyHistoryMaxResults, 20)
	v.SetDefault(keyServerAddr, ":8081")
	v.SetDefault(keyShutdownTimeout, "10s")
}

// loadConfig reads the effective configuration from viper.
func loadConfig(v *viper.Viper) types.Config {
	return types.Config{
		Engine: types.EngineConfig{
			Backend:       types.EngineBackend(v.GetString(keyEngineBackend)),
			SofficeBin:    v.GetString(keySofficeBin),
			Image:         v.GetString(keyImage),
			GotenbergURL:  v.GetString(keyGotenbergURL),
			RenderTimeout: v.GetDuration(keyRenderTimeout),
			HTTP: types.HTTPConfig{
				Timeout:    v.GetDuration(keyHTTPTimeout),
				UserAgent:  v.GetString(keyHTTPUserAgent),
				MaxRetries: v.GetInt(keyHTTPMaxRetries),
			},
		},
		Redaction: types.RedactionConfig{
			Keyword:            v.GetString(keyKeyword),
			IntermediateSuffix: v.GetString(keyIntermediateSuffix),
		},
		Batch: types.BatchConfig{
			OutputDir:        v.GetString(keyOutputDir),
			ContinueOnError:  v.GetBool(keyContinueOnError),
			CompleteOnCancel: v.GetBool(keyCompleteOnCancel),
			Separator:        v.GetString(keySeparator),
		},
		History: types.HistoryConfig{
			Dir:        v.GetString(keyHistoryDir),
			MaxResults: v.GetInt(keyHistoryMaxResults),
		},
		Server: types.ServerConfig{
			Addr:            v.GetString(keyServerAddr),
			ShutdownTimeout: v.GetDuration(keyShutdownTimeout),
		},
	}
}

// bindFlags binds command flags to config keys so a flag overrides the
// file and environment when set. Commands bind at run time because several
// commands share keys.
func bindFlags(cmd *cobra.Command, flags map[string]string) error {
	for flag, key := range flags {
		if err := viper.BindPFlag(key, cmd.Flags().Lookup(flag)); err != nil {
			return fmt.Errorf("binding --%s: %w", flag, err)
		}
	}
	return nil
}

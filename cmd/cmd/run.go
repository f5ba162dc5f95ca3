/*
Copyright © 2025 Your Name

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"gazette/internal/blob"
	"gazette/internal/config"
	"gazette/internal/core"
	"gazette/internal/issue"
	"gazette/internal/llm"
	"gazette/internal/logger"
)

// issueEnvelope is what the run command hands to the delivery layer: the
// curated content plus the destination's presentation settings.
type issueEnvelope struct {
	Destination string             `json:"destination"`
	Subject     string             `json:"subject"`
	Date        string             `json:"date"`
	Slogans     []string           `json:"slogans,omitempty"`
	Extras      []string           `json:"extras,omitempty"`
	Content     *core.IssueContent `json:"content"`
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Build and publish today's issues for every eligible destination",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runIssues(cmd.Context())
	},
}

func runIssues(ctx context.Context) error {
	app, err := config.LoadApp(cfgFile)
	if err != nil {
		return err
	}
	if devMode {
		app.Dev = true
		app.LogLevel = "debug"
	}

	// Warnings and above are captured for the admin issue's run log.
	capture := logger.NewCapture(slog.LevelWarn)
	log := logger.New(logger.ParseLevel(app.LogLevel), capture).With("run_id", uuid.NewString())

	store, err := blob.NewDirStore(app.StoreDir)
	if err != nil {
		return err
	}
	pub, err := config.LoadPublication(store, log)
	if err != nil {
		return err
	}

	now := time.Now()
	dests, err := config.LoadDestinations(store, pub, now, log)
	if err != nil {
		return err
	}
	if len(dests) == 0 {
		log.Info("no destinations scheduled today")
		return nil
	}

	runner := issue.NewRunner(store, pub, log)
	runner.Dev = app.Dev
	runner.Capture = capture
	runner.Publish = func(dest *config.Destination, content *core.IssueContent) error {
		return publishIssue(store, dest, content, now)
	}

	// The model client backs both the judge and the similarity encoder; it
	// is created once and shared read-only by every destination.
	if !disableJudge && !app.DisableJudge {
		client, err := llm.NewClient(ctx, app.GeminiModel)
		if err != nil {
			log.Warn("model client unavailable, judge and semantic dedup disabled", "error", err)
		} else {
			runner.Judge = client
			runner.Encoder = client
		}
	} else {
		log.Info("judge disabled by flag")
	}

	return runner.Run(ctx, dests)
}

// publishIssue writes the finished issue as a JSON object on the store,
// where the rendering and delivery layer picks it up.
func publishIssue(store blob.Store, dest *config.Destination, content *core.IssueContent, now time.Time) error {
	envelope := issueEnvelope{
		Destination: dest.Name,
		Subject:     dest.Subject,
		Date:        now.Format("2006-01-02"),
		Slogans:     dest.Slogans,
		Extras:      dest.Extras,
		Content:     content,
	}
	data, err := json.MarshalIndent(envelope, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode issue for %s: %w", dest.Name, err)
	}
	path := fmt.Sprintf("issues/%s_%s.json", now.Format("2006-01-02"), dest.Name)
	return store.Write(path, data)
}

func init() {
	rootCmd.AddCommand(runCmd)
}

package task

import (
	"fmt"

	"github.com/slok/packlaunch/internal/model"
)

// Describe formats a task record into a single progress description.
// Stats and stages are only formatted, never altered.
func Describe(rec model.TaskRecord) string {
	if rec.Data == nil {
		return rec.Message
	}

	if s := rec.Data.Stats; s != nil {
		stats := fmt.Sprintf("%d/%d files checked, %d corrupted, %d missing, %d fixed",
			s.CheckedFiles, s.TotalFiles, s.CorruptedFiles, s.MissingFiles, s.FixedFiles)
		if rec.Message == "" {
			return stats
		}
		return fmt.Sprintf("%s (%s)", rec.Message, stats)
	}

	if rec.Data.Stage != nil {
		stage := model.StageDescription(rec.Data.Stage)
		if rec.Message == "" || rec.Message == stage {
			return stage
		}
		return fmt.Sprintf("%s: %s", stage, rec.Message)
	}

	return rec.Message
}

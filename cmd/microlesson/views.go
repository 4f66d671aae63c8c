package main

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"microlesson/internal/api"
	"microlesson/internal/discovery"
)

func buildQueueStatusRows(stats map[string]int) [][]string {
	if len(stats) == 0 {
		return nil
	}
	keys := make([]string, 0, len(stats))
	for key := range stats {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	rows := make([][]string, 0, len(keys))
	for _, key := range keys {
		rows = append(rows, []string{formatStatusLabel(key), fmt.Sprintf("%d", stats[key])})
	}
	return rows
}

func buildVideoListRows(videos []api.Video) [][]string {
	if len(videos) == 0 {
		return nil
	}
	sorted := make([]api.Video, len(videos))
	copy(sorted, videos)

	sort.Slice(sorted, func(i, j int) bool {
		ti := parseQueueTime(sorted[i].CreatedAt)
		tj := parseQueueTime(sorted[j].CreatedAt)
		if ti.Equal(tj) {
			return sorted[i].ID > sorted[j].ID
		}
		return ti.After(tj)
	})

	rows := make([][]string, 0, len(sorted))
	for _, video := range sorted {
		title := strings.TrimSpace(video.Title)
		if title == "" {
			source := strings.TrimSpace(video.SourcePath)
			if source == "" {
				source = strings.TrimSpace(video.SourceURL)
			}
			if source != "" {
				title = filepath.Base(source)
			} else {
				title = "Unknown"
			}
		}
		rows = append(rows, []string{
			fmt.Sprintf("%d", video.ID),
			title,
			formatStatusLabel(video.Status),
			formatProgress(video.Progress),
			formatDisplayTime(video.CreatedAt),
		})
	}
	return rows
}

func buildSegmentRows(segments []api.Segment) [][]string {
	rows := make([][]string, 0, len(segments))
	for _, segment := range segments {
		anchored := "no"
		if segment.Anchored {
			anchored = "yes"
		}
		rows = append(rows, []string{
			fmt.Sprintf("%d", segment.Sequence),
			segment.Phase,
			fmt.Sprintf("%.1fs - %.1fs", segment.StartTime, segment.EndTime),
			formatStatusLabel(segment.Status),
			anchored,
			fmt.Sprintf("%.2f", segment.Confidence),
		})
	}
	return rows
}

func buildCandidateRows(candidates []discovery.Candidate) [][]string {
	rows := make([][]string, 0, len(candidates))
	for i, candidate := range candidates {
		rows = append(rows, []string{
			fmt.Sprintf("%d", i+1),
			candidate.Title,
			candidate.ChannelTitle,
			formatCandidateDuration(candidate.DurationSeconds),
			fmt.Sprintf("%d", candidate.ViewCount),
			fmt.Sprintf("%.2f", candidate.CompositeScore),
		})
	}
	return rows
}

func formatProgress(progress api.Progress) string {
	stage := strings.TrimSpace(progress.Stage)
	if stage == "" {
		return "-"
	}
	return fmt.Sprintf("%s (%.0f%%)", stage, progress.Percent)
}

func formatCandidateDuration(seconds int) string {
	if seconds <= 0 {
		return "-"
	}
	d := time.Duration(seconds) * time.Second
	minutes := int(d.Minutes())
	secs := seconds % 60
	return fmt.Sprintf("%d:%02d", minutes, secs)
}

func formatStatusLabel(status string) string {
	status = strings.TrimSpace(status)
	if status == "" {
		return ""
	}
	parts := strings.Split(status, "_")
	for i, part := range parts {
		lower := strings.ToLower(part)
		if lower == "" {
			continue
		}
		parts[i] = strings.ToUpper(lower[:1]) + lower[1:]
	}
	return strings.Join(parts, " ")
}

func formatDisplayTime(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t.UTC().Format("2006-01-02 15:04")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t.UTC().Format("2006-01-02 15:04")
	}
	return value
}

func parseQueueTime(value string) time.Time {
	if value == "" {
		return time.Time{}
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t
	}
	return time.Time{}
}

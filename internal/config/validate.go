package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateIngestion(); err != nil {
		return err
	}
	if err := c.validateAlignment(); err != nil {
		return err
	}
	if err := c.validateScript(); err != nil {
		return err
	}
	if err := c.validateRendering(); err != nil {
		return err
	}
	if err := c.validateWorkflow(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateIngestion() error {
	if c.Ingestion.MaxFileSizeMB <= 0 {
		return errors.New("ingestion.max_file_size_mb must be positive")
	}
	if c.Ingestion.MinDurationSec <= 0 {
		return errors.New("ingestion.min_duration_sec must be positive")
	}
	if c.Ingestion.MaxDurationSec <= c.Ingestion.MinDurationSec {
		return errors.New("ingestion.max_duration_sec must exceed ingestion.min_duration_sec")
	}
	if c.Ingestion.MinWidth <= 0 || c.Ingestion.MinHeight <= 0 {
		return errors.New("ingestion minimum resolution must be positive")
	}
	return nil
}

func (c *Config) validateAlignment() error {
	if c.Alignment.TrustThreshold < 0 || c.Alignment.TrustThreshold > 1 {
		return errors.New("alignment.trust_threshold must be between 0 and 1")
	}
	if c.Alignment.MinPhaseConfidence < 0 || c.Alignment.MinPhaseConfidence > 1 {
		return errors.New("alignment.min_phase_confidence must be between 0 and 1")
	}
	return nil
}

func (c *Config) validateScript() error {
	if c.Script.TargetDurationSec <= 0 {
		return errors.New("script.target_duration_sec must be positive")
	}
	if c.Script.DurationTolerance <= 0 || c.Script.DurationTolerance >= 1 {
		return errors.New("script.duration_tolerance must be in (0, 1)")
	}
	if c.Script.MaxOptimizeRetries < 0 {
		return errors.New("script.max_optimize_retries must not be negative")
	}
	return nil
}

func (c *Config) validateRendering() error {
	switch c.Rendering.MismatchPolicy {
	case MismatchHoldFrame, MismatchTimeCompress:
	default:
		return fmt.Errorf("rendering.mismatch_policy: unsupported value %q", c.Rendering.MismatchPolicy)
	}
	if len(c.Rendering.Formats) == 0 {
		return errors.New("rendering.formats must list at least one output format")
	}
	return nil
}

func (c *Config) validateWorkflow() error {
	if c.Workflow.QueuePollInterval <= 0 {
		return errors.New("workflow.queue_poll_interval must be positive")
	}
	if c.Workflow.ErrorRetryInterval <= 0 {
		return errors.New("workflow.error_retry_interval must be positive")
	}
	if c.Workflow.HeartbeatInterval <= 0 || c.Workflow.HeartbeatTimeout <= c.Workflow.HeartbeatInterval {
		return errors.New("workflow heartbeat timeout must exceed heartbeat interval")
	}
	if c.Workflow.Workers <= 0 {
		return errors.New("workflow.workers must be positive")
	}
	return nil
}

package config

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateWorkflow(); err != nil {
		return err
	}
	if err := c.validateTools(); err != nil {
		return err
	}
	if err := c.validateRecommendation(); err != nil {
		return err
	}
	return c.validateNotifications()
}

func (c *Config) validateWorkflow() error {
	if err := ensurePositiveMap(map[string]int{
		"workflow.queue_poll_interval":  c.Workflow.QueuePollInterval,
		"workflow.error_retry_interval": c.Workflow.ErrorRetryInterval,
		"workflow.stale_work_dir_hours": c.Workflow.StaleWorkDirHours,
		"download.timeout_seconds":      c.Download.TimeoutSeconds,
	}); err != nil {
		return err
	}
	if c.Workflow.ErrorRetryInterval < c.Workflow.QueuePollInterval {
		return errors.New("workflow.error_retry_interval must be at least workflow.queue_poll_interval")
	}
	if c.Tools.TimeoutMinutes > 0 && c.Workflow.StaleWorkDirHours*60 <= c.Tools.TimeoutMinutes {
		return fmt.Errorf("workflow.stale_work_dir_hours (%dh) must exceed tools.timeout_minutes (%dm)",
			c.Workflow.StaleWorkDirHours, c.Tools.TimeoutMinutes)
	}
	return nil
}

func (c *Config) validateTools() error {
	if c.Tools.TimeoutMinutes < 0 {
		return errors.New("tools.timeout_minutes must be >= 0 (0 disables the timeout)")
	}
	if c.Tools.StackSize <= 0 || c.Tools.StackSize%2 != 0 {
		return fmt.Errorf("tools.stack_size must be a positive even number, got %d", c.Tools.StackSize)
	}
	return nil
}

func (c *Config) validateRecommendation() error {
	if !c.Recommendation.Enabled {
		return nil
	}
	if c.Recommendation.Count < 1 {
		return errors.New("recommendation.count must be >= 1")
	}
	return ensurePositiveMap(map[string]int{
		"recommendation.interval_seconds":     c.Recommendation.IntervalSeconds,
		"recommendation.error_retry_seconds":  c.Recommendation.ErrorRetrySeconds,
		"recommendation.http_timeout_seconds": c.Recommendation.HTTPTimeoutSeconds,
	})
}

func ensurePositiveMap(values map[string]int) error {
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		if values[key] <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}

func (c *Config) validateNotifications() error {
	topic := c.Notifications.NtfyTopic
	if topic == "" {
		return nil
	}
	if !strings.HasPrefix(topic, "http://") && !strings.HasPrefix(topic, "https://") {
		return fmt.Errorf("notifications.ntfy_topic must be an http(s) URL, got %q", topic)
	}
	return nil
}

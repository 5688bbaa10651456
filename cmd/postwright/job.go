package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Job describes one draft to author: the title, the body text, and optional
// tags. Content organization (sections, images) is upstream's concern; by the
// time a job reaches this driver the body is final text.
type Job struct {
	Title string   `yaml:"title"`
	Body  string   `yaml:"body"`
	Tags  []string `yaml:"tags"`
}

// LoadJob reads a job description from a YAML file.
func LoadJob(path string) (Job, error) {
	var job Job

	data, err := os.ReadFile(path)
	if err != nil {
		return job, fmt.Errorf("failed to read job file: %w", err)
	}
	if err := yaml.Unmarshal(data, &job); err != nil {
		return job, fmt.Errorf("failed to parse job file %s: %w", path, err)
	}

	if job.Title == "" {
		return job, fmt.Errorf("job file %s: title is required", path)
	}
	if job.Body == "" {
		return job, fmt.Errorf("job file %s: body is required", path)
	}
	return job, nil
}

package server

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"
)

func TestLoadConfigDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := ioutil.WriteFile(path, []byte("server:\n  http_port: 9090\n"), 0644); err != nil {
		t.Fatalf("writing config failed: %v", err)
	}

	config, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if config.Server.HTTPPort != 9090 {
		t.Errorf("expected http_port 9090, got %d", config.Server.HTTPPort)
	}
	if config.Server.GRPCPort != 8081 {
		t.Errorf("expected default grpc_port 8081, got %d", config.Server.GRPCPort)
	}
	if config.AWS.Region != "us-west-2" {
		t.Errorf("expected default region, got %q", config.AWS.Region)
	}
	if config.AWS.DynamoDB.WorkshopsTable != "workshop-api-workshops" {
		t.Errorf("expected default workshops table, got %q", config.AWS.DynamoDB.WorkshopsTable)
	}
	if config.AWS.S3.BucketName != "workshop-api-images" {
		t.Errorf("expected default bucket name, got %q", config.AWS.S3.BucketName)
	}
	if config.AWS.ElastiCache.TTL != 3600 {
		t.Errorf("expected default TTL 3600, got %d", config.AWS.ElastiCache.TTL)
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(os.TempDir(), "no-such-config.yaml"))
	if err == nil {
		t.Fatal("expected error for missing config file")
	}
}

package utils

import (
	"runtime/debug"
	"testing"
)

func TestRevisionFromSettings(t *testing.T) {
	testCases := []struct {
		name     string
		settings []debug.BuildSetting
		expected string
	}{
		{name: "no revision", settings: nil, expected: unknownVersion},
		{
			name:     "clean revision",
			settings: []debug.BuildSetting{{Key: revisionSettingKey, Value: "0123456789abcdef0123"}},
			expected: "0123456789ab",
		},
		{
			name: "dirty revision",
			settings: []debug.BuildSetting{
				{Key: revisionSettingKey, Value: "abc123"},
				{Key: modifiedSettingKey, Value: "true"},
			},
			expected: "abc123-dirty",
		},
	}
	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			if actual := revisionFromSettings(testCase.settings); actual != testCase.expected {
				t.Fatalf("expected %s, got %s", testCase.expected, actual)
			}
		})
	}
}

func TestGetApplicationVersionPrefersLinkedVersion(t *testing.T) {
	previousVersion := Version
	Version = "v9.9.9"
	defer func() { Version = previousVersion }()
	if actual := GetApplicationVersion(); actual != "v9.9.9" {
		t.Fatalf("expected linked version, got %s", actual)
	}
}

package main

import "videonotes-site/config"

func getConfigDir() string {
	return config.GetConfigDir()
}

func getGeminiAPIKey() (string, error) {
	return config.GetGeminiAPIKey()
}

func getSessionAuthKey() ([]byte, error) {
	return config.GetSessionAuthKey()
}

func getSecure() bool {
	return config.GetSecure()
}

func getGitSHA() string {
	return config.GetGitSHA()
}

func getBuildDate() string {
	return config.GetBuildDate()
}

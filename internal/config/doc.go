// Package config loads the settings of the aiflow CLI from an optional
// aiflow.yaml, an optional .env file and the environment, in that order.
package config

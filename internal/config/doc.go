// Package config loads jenkey's configuration file.
//
// The file is YAML and is decoded on top of Default, so any key may be
// omitted. Unknown keys are rejected. Template paths and the manifest
// directory accept a leading "~". The API token may be given directly or
// through the environment variable named by server.tokenEnv.
//
//	server:
//	  url: https://ci.example.com/
//	  username: deploy
//	  tokenEnv: JENKINS_TOKEN
//	sync:
//	  parallel: true
//	  prune: never
package config

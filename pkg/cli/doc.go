// Package cli holds the pieces shared by the languify command line:
// kubectl-style endpoint contexts, profile file loading, YAML/JSON output,
// the per-app directory layout and the terminal frame used by talk.
//
// Configuration lives in ~/.languify/<app>/config.yaml, or under
// $LANGUIFY_HOME when set:
//
//	cfg, err := cli.LoadConfigWithPath("languify", "")
//	ctx, err := cfg.ResolveContext(name)
//
//	cli.Output(os.Stdout, devices, cli.FormatJSON)
package cli

// Package logx is wifimgr's logging layer: a thin wrapper over zerolog.
//
// Console lines are short and human-readable (time, level, file:line); the
// optional log file gets JSON lines. A Service re-targets every Logger it
// handed out when the config file is reloaded.
package logx

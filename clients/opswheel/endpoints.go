package opswheel

const (
	// Paths, all relative to the API base URL.
	wheelPath        = "/wheel/%s"
	participantsPath = "/wheel/%s/participant"
	suggestPath      = "/wheel/%s/participant/suggest"
	multiSuggestPath = "/wheel/%s/participant/suggest_multi"
	selectPath       = "/wheel/%s/participant/%s/select"
	rigPath          = "/wheel/%s/participant/%s/rig"
	unrigPath        = "/wheel/%s/unrig"
	resetPath        = "/wheel/%s/reset"

	wheelCacheKeyPrefix = "wheel:"
)

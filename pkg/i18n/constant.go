package i18n

var ALLOW_LANG = map[string]bool{
	"en":    true,
	"zh-CN": true,
}

const DEFAULT_LANG = "en"

const (
	ERROR_INTERNAL            = "error.internal"
	ERROR_NOT_FOUND           = "error.notfound"
	ERROR_INVALIDARGUMENT     = "error.invalidargument"
	ERROR_EXIST               = "error.exist"
	ERROR_FORBIDDEN           = "error.forbidden"
	ERROR_TOO_MANY_REQUESTS   = "error.tooManyRequests"
	ERROR_MORE_TAHN_MAX       = "error.moreThanMax"
	ERROR_UNSUPPORTED_FEATURE = "error.unsupported.feature"

	ERROR_IMAGE_READ_FAIL      = "error.image.read_file"
	ERROR_IMAGE_TYPE_UNSUPPORT = "error.image.type.unsupport"

	ERROR_AI_TEXT_MODEL_NOT_FOUND = "error.ai.text.model.not.found"
	ERROR_AI_TOOL_NOT_FOUND       = "error.ai.tool.not.found"
	ERROR_PROVIDER_NOT_CONFIGURED = "error.provider.not.configured"
	ERROR_SESSION_BUSY            = "error.session.busy"
	ERROR_WORKFLOW_INVALID_JSON   = "error.workflow.invalid.json"
)

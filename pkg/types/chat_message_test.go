package types_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atelier-ai/atelier-ai/pkg/types"
)

func Test_ChatMessageAttachScan(t *testing.T) {
	var attach types.ChatMessageAttach
	require.NoError(t, attach.Scan([]byte(`[{"type":"image","url":"/api/file/abc.png","tool":"generate_image_by_gpt_image_1"}]`)))

	require.Len(t, attach, 1)
	assert.Equal(t, "image", attach[0].Type)
	assert.Equal(t, "generate_image_by_gpt_image_1", attach[0].Tool)
}

func Test_ChatMessageAttachScanNil(t *testing.T) {
	var attach types.ChatMessageAttach
	require.NoError(t, attach.Scan(nil))
	assert.Nil(t, attach)
}

func Test_ChatMessageAttachValueEmpty(t *testing.T) {
	var attach types.ChatMessageAttach
	v, err := attach.Value()
	require.NoError(t, err)
	assert.Equal(t, "[]", v)
}

func Test_MessageUserRoleRoundtrip(t *testing.T) {
	assert.Equal(t, types.USER_ROLE_TOOL, types.GetMessageUserRole("tool"))
	assert.Equal(t, "assistant", types.USER_ROLE_ASSISTANT.String())
	assert.Equal(t, types.USER_ROLE_UNKNOWN, types.GetMessageUserRole("nobody"))
}

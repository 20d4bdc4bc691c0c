package pipeline_test

import (
	"testing"

	"resume-agent-go/internal/pipeline"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validResume = "Work Experience:\n- Engineer, Acme, 2020-2023: Built things.\nEducation:\n- B.S., State U, 2016-2020"

func TestValidateResumeText_Valid(t *testing.T) {
	require.NoError(t, pipeline.ValidateResumeText(validResume))
}

func TestValidateResumeText_ValidWithIndentation(t *testing.T) {
	text := "  Education:  \n  - M.S., Tech Institute, 2018-2020"
	require.NoError(t, pipeline.ValidateResumeText(text))
}

func TestValidateResumeText_Invalid(t *testing.T) {
	cases := []struct {
		name string
		text string
	}{
		{"空文本", ""},
		{"纯空白", "   \n\t  "},
		{"缺少教育段落", "Work Experience:\n- Engineer, Acme, 2020-2023: Built things."},
		{"有标题无条目", "Education:\nI went to school."},
		{"条目缺少年份区间", "Education:\n- B.S., State U"},
		{"条目字段不足", "Education:\n- B.S., 2016-2020"},
		{"标题不在行首单独成行", "My Education: is extensive\n- B.S., State U, 2016-2020"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := pipeline.ValidateResumeText(tc.text)
			assert.ErrorIs(t, err, pipeline.ErrInvalidResume)
		})
	}
}

package validation

import (
	"errors"
	"strings"
	"testing"

	"feedhub/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fieldsOf(t *testing.T, err error) map[string]string {
	t.Helper()
	var appErr *models.AppError
	require.True(t, errors.As(err, &appErr), "expected AppError, got %v", err)
	require.Equal(t, models.KindValidation, appErr.Kind)
	out := map[string]string{}
	for _, fe := range appErr.ValidationErrors {
		out[fe.Field] = fe.Message
	}
	return out
}

func TestSignupInput(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name       string
		input      SignupInput
		wantFields []string
	}{
		{"valid", SignupInput{Email: "a@b.com", Password: "Secret123", Name: "Ann"}, nil},
		{"bad email", SignupInput{Email: "nope", Password: "Secret123", Name: "Ann"}, []string{"email"}},
		{"short password", SignupInput{Email: "a@b.com", Password: "Ab1", Name: "Ann"}, []string{"password"}},
		{"weak password", SignupInput{Email: "a@b.com", Password: "secret123", Name: "Ann"}, []string{"password"}},
		{"short name", SignupInput{Email: "a@b.com", Password: "Secret123", Name: "Al"}, []string{"name"}},
		{"name with digits", SignupInput{Email: "a@b.com", Password: "Secret123", Name: "Ann 2"}, []string{"name"}},
		{"everything wrong", SignupInput{Email: "", Password: "", Name: ""}, []string{"email", "password", "name"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := tt.input
			in.Normalize()
			err := Struct(&in)
			if len(tt.wantFields) == 0 {
				assert.NoError(t, err)
				return
			}
			fields := fieldsOf(t, err)
			assert.Len(t, fields, len(tt.wantFields))
			for _, f := range tt.wantFields {
				assert.Contains(t, fields, f)
			}
		})
	}
}

func TestSignupInput_NormalizeTrimsAndLowercases(t *testing.T) {
	t.Parallel()
	in := SignupInput{Email: "  Ann@Example.COM ", Password: " Secret123 ", Name: "  Ann Lee "}
	in.Normalize()
	assert.Equal(t, "ann@example.com", in.Email)
	assert.Equal(t, "Secret123", in.Password)
	assert.Equal(t, "Ann Lee", in.Name)
}

func TestPostInput(t *testing.T) {
	t.Parallel()

	ok := PostInput{Title: "  Hello, world!  ", Content: "Some content"}
	ok.Normalize()
	assert.NoError(t, Struct(&ok))

	short := PostInput{Title: "abc", Content: "Some content"}
	fields := fieldsOf(t, Struct(&short))
	assert.Equal(t, "Title must be between 5 and 100 characters", fields["title"])

	symbols := PostInput{Title: "<script>", Content: "Some content"}
	fields = fieldsOf(t, Struct(&symbols))
	assert.Equal(t, "Title contains invalid characters", fields["title"])

	long := PostInput{Title: "Valid title", Content: strings.Repeat("x", 2001)}
	fields = fieldsOf(t, Struct(&long))
	assert.Contains(t, fields, "content")
}

func TestPostInput_Escaped(t *testing.T) {
	t.Parallel()
	in := PostInput{Title: "Fish & Chips", Content: `<b>"bold"</b>`}
	out := in.Escaped()
	assert.Equal(t, "Fish &amp; Chips", out.Title)
	assert.Equal(t, "&lt;b&gt;&#34;bold&#34;&lt;/b&gt;", out.Content)
}

func TestStatusInput(t *testing.T) {
	t.Parallel()
	blank := StatusInput{Status: "   "}
	blank.Normalize()
	assert.Contains(t, fieldsOf(t, Struct(&blank)), "status")

	long := StatusInput{Status: strings.Repeat("a", 201)}
	assert.Contains(t, fieldsOf(t, Struct(&long)), "status")

	fine := StatusInput{Status: "Feeling good"}
	assert.NoError(t, Struct(&fine))
}

func TestMerge(t *testing.T) {
	t.Parallel()
	extra := models.FieldError{Field: "email", Message: "Email already exists"}

	assert.NoError(t, Merge(nil))

	fromNil := fieldsOf(t, Merge(nil, extra))
	assert.Equal(t, "Email already exists", fromNil["email"])

	in := SignupInput{Email: "a@b.com", Password: "weak", Name: "Ann"}
	merged := fieldsOf(t, Merge(Struct(&in), extra))
	assert.Contains(t, merged, "password")
	assert.Contains(t, merged, "email")
}

func TestParsePostID(t *testing.T) {
	t.Parallel()
	id, err := ParsePostID("42")
	require.NoError(t, err)
	assert.Equal(t, uint(42), id)

	for _, raw := range []string{"", "0", "-1", "abc", "5f1d7c"} {
		_, err := ParsePostID(raw)
		assert.Contains(t, fieldsOf(t, err), "postId", raw)
	}
}

func TestParsePage(t *testing.T) {
	t.Parallel()
	assert.Equal(t, 1, ParsePage(""))
	assert.Equal(t, 1, ParsePage("0"))
	assert.Equal(t, 1, ParsePage("-3"))
	assert.Equal(t, 1, ParsePage("two"))
	assert.Equal(t, 3, ParsePage("3"))
}

func TestIsEmail(t *testing.T) {
	t.Parallel()
	assert.True(t, IsEmail("a@b.com"))
	assert.False(t, IsEmail("a@"))
	assert.False(t, IsEmail(""))
}

package assistant

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/diaz/kanban/internal/board"
	"github.com/diaz/kanban/internal/history"
)

type fakeModel struct {
	out   *schema.Message
	err   error
	block bool

	tools  []*schema.ToolInfo
	inputs [][]*schema.Message
}

func (f *fakeModel) Generate(ctx context.Context, in []*schema.Message, _ ...model.Option) (*schema.Message, error) {
	f.inputs = append(f.inputs, in)
	if f.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return f.out, f.err
}

func (f *fakeModel) Stream(context.Context, []*schema.Message, ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, errors.New("streaming not supported")
}

func (f *fakeModel) WithTools(tools []*schema.ToolInfo) (model.ToolCallingChatModel, error) {
	f.tools = tools
	return f, nil
}

func toolCall(args string) schema.ToolCall {
	return schema.ToolCall{
		ID:       "call-1",
		Function: schema.FunctionCall{Name: createTaskToolName, Arguments: args},
	}
}

func newAssistant(t *testing.T, fm *fakeModel) *Assistant {
	t.Helper()
	a, err := NewWithModel(DefaultConfig(), fm)
	require.NoError(t, err)
	return a
}

func TestNewWithModel_BindsCreateTaskTool(t *testing.T) {
	fm := &fakeModel{}
	a := newAssistant(t, fm)

	assert.True(t, a.Configured())
	require.Len(t, fm.tools, 1)
	assert.Equal(t, "createTask", fm.tools[0].Name)
}

func TestNew_WithoutAPIKey(t *testing.T) {
	a, err := New(context.Background(), DefaultConfig())
	require.NoError(t, err)
	assert.False(t, a.Configured())

	reply := a.Reply(context.Background(), []history.Message{history.NewMessage(history.RoleUser, "hi")}, nil)
	assert.Equal(t, MissingKeyText, reply.Text)
	assert.Empty(t, reply.Intents)
}

func TestReply_TextAnswer(t *testing.T) {
	fm := &fakeModel{out: schema.AssistantMessage("Focus on the deploy first.", nil)}
	a := newAssistant(t, fm)

	tasks := []board.Task{{Title: "Deploy", Priority: board.PriorityHigh, Progress: 50, Column: board.ColumnProgress}}
	hist := []history.Message{
		history.NewMessage(history.RoleUser, "What should I do?"),
	}

	reply := a.Reply(context.Background(), hist, tasks)
	assert.Equal(t, "Focus on the deploy first.", reply.Text)
	assert.Empty(t, reply.Intents)

	require.Len(t, fm.inputs, 1)
	in := fm.inputs[0]
	require.Len(t, in, 2)
	assert.Equal(t, schema.System, in[0].Role)
	assert.Contains(t, in[0].Content, `"title": "Deploy"`)
	assert.Contains(t, in[0].Content, `"progress": "50%"`)
	assert.Equal(t, schema.User, in[1].Role)
	assert.Equal(t, "What should I do?", in[1].Content)
}

func TestReply_ToolCallsBecomeIntents(t *testing.T) {
	fm := &fakeModel{out: schema.AssistantMessage("", []schema.ToolCall{
		toolCall(`{"title":" Write tests ","description":"cover dwell","priority":"High","column":"in progress"}`),
		toolCall(`{"title":"Plan sprint","priority":"medum","column":"pnding"}`),
		toolCall(`{"title":"","priority":"low","column":"done"}`),
		toolCall(`not json`),
		{ID: "x", Function: schema.FunctionCall{Name: "deleteEverything", Arguments: `{}`}},
	})}
	a := newAssistant(t, fm)

	reply := a.Reply(context.Background(), []history.Message{history.NewMessage(history.RoleUser, "add tasks")}, nil)
	assert.Equal(t, ToolOnlyText, reply.Text)
	require.Len(t, reply.Intents, 2)

	assert.Equal(t, CreateTaskIntent{
		Title:       "Write tests",
		Description: "cover dwell",
		Priority:    board.PriorityHigh,
		Column:      board.ColumnProgress,
	}, reply.Intents[0])
	assert.Equal(t, board.PriorityMedium, reply.Intents[1].Priority)
	assert.Equal(t, board.ColumnPending, reply.Intents[1].Column)
}

func TestReply_ModelErrorBecomesText(t *testing.T) {
	fm := &fakeModel{err: errors.New("503 service unavailable")}
	a := newAssistant(t, fm)

	reply := a.Reply(context.Background(), []history.Message{history.NewMessage(history.RoleUser, "hi")}, nil)
	assert.True(t, strings.HasPrefix(reply.Text, failurePrefix))
	assert.Contains(t, reply.Text, "503 service unavailable")
	assert.Empty(t, reply.Intents)
}

func TestReply_Timeout(t *testing.T) {
	fm := &fakeModel{block: true}
	cfg := DefaultConfig()
	cfg.Timeout = 20 * time.Millisecond
	a, err := NewWithModel(cfg, fm)
	require.NoError(t, err)

	reply := a.Reply(context.Background(), []history.Message{history.NewMessage(history.RoleUser, "hi")}, nil)
	assert.Contains(t, reply.Text, context.DeadlineExceeded.Error())
}

func TestReply_EmptyAnswer(t *testing.T) {
	a := newAssistant(t, &fakeModel{out: schema.AssistantMessage("  ", nil)})

	reply := a.Reply(context.Background(), nil, nil)
	assert.Equal(t, EmptyResponseText, reply.Text)
}

func TestReply_HistoryLimit(t *testing.T) {
	fm := &fakeModel{out: schema.AssistantMessage("ok", nil)}
	cfg := DefaultConfig()
	cfg.HistoryLimit = 2
	a, err := NewWithModel(cfg, fm)
	require.NoError(t, err)

	hist := []history.Message{
		history.NewMessage(history.RoleUser, "one"),
		history.NewMessage(history.RoleAssistant, "two"),
		history.NewMessage(history.RoleUser, "three"),
	}
	a.Reply(context.Background(), hist, nil)

	require.Len(t, fm.inputs, 1)
	in := fm.inputs[0]
	require.Len(t, in, 3)
	assert.Equal(t, schema.Assistant, in[1].Role)
	assert.Equal(t, "two", in[1].Content)
	assert.Equal(t, "three", in[2].Content)
}

func TestNormalizeEnum(t *testing.T) {
	columns := enumValues(board.Columns)

	tests := []struct {
		in   string
		want string
	}{
		{"done", "done"},
		{"  DONE ", "done"},
		{"todo", "pending"},
		{"In Progress", "progress"},
		{"progres", "progress"},
		{"dnoe", "done"},
		{"archive", "pending"},
		{"", "pending"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, normalizeEnum(tt.in, columnAliases, columns, "pending"))
		})
	}
}

// Package agent implements the dialog graphs: the node pipeline that turns
// an incoming client message into a reply, calling booking tools along the
// way.
package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ai2b/zena/internal/domain"
	"github.com/ai2b/zena/internal/graph"
	"github.com/ai2b/zena/internal/history"
	"github.com/ai2b/zena/internal/llm"
	"github.com/ai2b/zena/internal/mcp"
	"github.com/ai2b/zena/internal/prompt"
	"github.com/ai2b/zena/internal/store"
)

const (
	// historyLimit caps how much stored dialog is replayed to the model.
	historyLimit = 40
	// maxToolRounds bounds agent/tool ping-pong within one invocation.
	maxToolRounds = 8
)

// pipeline holds the per-persona dependencies the nodes close over.
type pipeline struct {
	deps graph.Deps
}

// nodeVerify loads the dialog context and handles the stop word. On the
// stop word the history is wiped and the canned confirmation is returned
// without involving the model.
func (p *pipeline) nodeVerify(ctx context.Context, st *graph.State) (string, error) {
	st.Persona = p.deps.Persona

	ch, err := p.deps.Store.Channel(ctx, st.ChannelID)
	switch {
	case err == nil:
		st.Channel = ch
	case errors.Is(err, store.ErrChannelNotFound):
		p.deps.Log.Warn().Str("channel_id", st.ChannelID).Msg("channel not registered, using bare defaults")
		st.Channel = store.Channel{ID: st.ChannelID, Persona: p.deps.Persona.Name}
	default:
		return "", fmt.Errorf("loading channel: %w", err)
	}

	if st.DialogState == "" && p.deps.States != nil {
		st.DialogState = p.deps.States.Get(ctx, st.ChannelID, st.ChatID)
	}
	if !domain.ValidState(st.DialogState) {
		st.DialogState = domain.StateNew
	}

	if strings.EqualFold(strings.TrimSpace(st.UserMessage), domain.StopWord) {
		if err := p.deps.Store.ClearHistory(ctx, st.ChannelID, st.ChatID); err != nil {
			return "", fmt.Errorf("clearing history: %w", err)
		}
		if p.deps.States != nil {
			p.deps.States.Reset(ctx, st.ChannelID, st.ChatID)
		}
		st.DialogState = domain.StateNew
		st.Reply = domain.StopReply
		st.Finished = true
		p.deps.Log.Info().Str("chat_id", st.ChatID).Msg("stop word received, dialog reset")
		return "finish", nil
	}

	return "collect", nil
}

// nodeCollect gathers the stored history plus the current message.
func (p *pipeline) nodeCollect(ctx context.Context, st *graph.State) (string, error) {
	msgs, err := p.deps.Store.History(ctx, st.ChannelID, st.ChatID, historyLimit)
	if err != nil {
		return "", fmt.Errorf("loading history: %w", err)
	}
	st.Messages = append(msgs, domain.User(st.UserMessage))
	return "prompt", nil
}

// nodePrompt renders the system prompt with channel data and the master
// roster.
func (p *pipeline) nodePrompt(ctx context.Context, st *graph.State) (string, error) {
	var masters []store.Master
	if p.deps.Masters != nil {
		m, err := p.deps.Masters.Get(ctx, st.ChannelID)
		if err != nil {
			p.deps.Log.Warn().Err(err).Msg("master roster unavailable, prompt rendered without it")
		} else {
			masters = m
		}
	} else if p.deps.Store != nil {
		m, err := p.deps.Store.Masters(ctx, st.ChannelID)
		if err == nil {
			masters = m
		}
	}

	text := prompt.DefaultTemplate
	if p.deps.Prompt != nil {
		t, err := p.deps.Prompt.Text(ctx)
		if err != nil {
			p.deps.Log.Warn().Err(err).Msg("prompt source failed, using built-in template")
		} else {
			text = t
		}
	}

	rendered, err := prompt.Render(text, prompt.Data{
		Persona:      st.Persona.Name,
		ChannelTitle: st.Channel.Title,
		DialogState:  st.DialogState,
		Masters:      masters,
		Params:       st.Channel.PromptParams,
	})
	if err != nil {
		return "", err
	}
	st.SystemPrompt = rendered
	return "tools", nil
}

// nodeTools fetches the tool catalog and narrows it to the current dialog
// state.
func (p *pipeline) nodeTools(ctx context.Context, st *graph.State) (string, error) {
	if p.deps.MCP == nil {
		return "agent", nil
	}
	tools, err := p.deps.MCP.ListTools(ctx)
	if err != nil {
		p.deps.Log.Warn().Err(err).Msg("tool listing failed, answering without tools")
		return "agent", nil
	}
	st.Tools = mcp.ToDefinitions(mcp.FilterTools(st.DialogState, tools))
	return "agent", nil
}

// nodeAgent runs the model over the assembled context. Tool calls route to
// the executor, a plain answer finishes the turn.
func (p *pipeline) nodeAgent(ctx context.Context, st *graph.State) (string, error) {
	req := llm.CompletionRequest{
		Messages:    append([]domain.Message{domain.System(st.SystemPrompt)}, st.Messages...),
		Tools:       st.Tools,
		Temperature: p.deps.Models.Temperature,
	}
	resp, err := p.deps.Models.Large.Complete(ctx, req)
	if err != nil {
		return "", fmt.Errorf("completion: %w", err)
	}
	st.Usage.Add(llm.UsageOrEstimate(resp, req))

	if len(resp.ToolCalls) > 0 {
		st.ToolRounds++
		if st.ToolRounds > maxToolRounds {
			return "", fmt.Errorf("tool loop exceeded %d rounds", maxToolRounds)
		}
		st.Messages = append(st.Messages, domain.Message{
			Role:      domain.RoleAssistant,
			Content:   resp.Content,
			ToolCalls: resp.ToolCalls,
		})
		st.PendingCalls = resp.ToolCalls
		return "tools_exec", nil
	}

	st.Reply = resp.Content
	return "finish", nil
}

// nodeToolExec executes every pending tool call and advances the dialog
// state for calls that move the booking funnel.
func (p *pipeline) nodeToolExec(ctx context.Context, st *graph.State) (string, error) {
	for _, call := range st.PendingCalls {
		result, err := p.deps.MCP.CallTool(ctx, call.Name, json.RawMessage(call.Arguments))
		if err != nil {
			p.deps.Log.Warn().Err(err).Str("tool", call.Name).Msg("tool call failed")
			result = fmt.Sprintf("инструмент недоступен: %v", err)
		} else {
			next := domain.NextState(st.DialogState, call.Name)
			if next != st.DialogState {
				p.deps.Log.Info().
					Str("tool", call.Name).
					Str("from", string(st.DialogState)).
					Str("to", string(next)).
					Msg("dialog state advanced")
				st.DialogState = next
			}
		}
		st.Messages = append(st.Messages, domain.ToolResult(call.ID, call.Name, result))
	}
	st.PendingCalls = nil

	// The allowed tool set depends on the state, so refresh it before the
	// model answers again.
	return "tools", nil
}

// nodeFinish persists the turn, saves the dialog state, and exports it.
func (p *pipeline) nodeFinish(ctx context.Context, st *graph.State) (string, error) {
	if !st.Finished {
		if err := p.deps.Store.Append(ctx, st.ChannelID, st.ChatID, domain.User(st.UserMessage)); err != nil {
			return "", fmt.Errorf("storing user message: %w", err)
		}
		if err := p.deps.Store.Append(ctx, st.ChannelID, st.ChatID, domain.Assistant(st.Reply)); err != nil {
			return "", fmt.Errorf("storing reply: %w", err)
		}
	}
	if p.deps.States != nil && !st.Finished {
		p.deps.States.Set(ctx, st.ChannelID, st.ChatID, st.DialogState)
	}

	if err := p.deps.History.Export(ctx, history.Turn{
		ChannelID:    st.ChannelID,
		ChatID:       st.ChatID,
		Persona:      st.Persona.Name,
		UserMessage:  st.UserMessage,
		Reply:        st.Reply,
		DialogState:  string(st.DialogState),
		InputTokens:  st.Usage.InputTokens,
		OutputTokens: st.Usage.OutputTokens,
		At:           time.Now().UTC(),
	}); err != nil {
		p.deps.Log.Warn().Err(err).Msg("history export failed")
	}

	return graph.End, nil
}

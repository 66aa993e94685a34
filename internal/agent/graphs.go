package agent

import (
	"context"
	"fmt"

	"github.com/ai2b/zena/internal/domain"
	"github.com/ai2b/zena/internal/graph"
	"github.com/ai2b/zena/internal/llm"
)

func init() {
	graph.RegisterFactory("ConversationGraph", ConversationGraph)
	graph.RegisterFactory("RedialogGraph", RedialogGraph)
}

// ConversationGraph builds the main dialog pipeline: verify, collect
// context, render the prompt, pick tools, loop the model against the
// booking tools, then persist and export the turn.
func ConversationGraph(deps graph.Deps) (*graph.CompiledGraph, error) {
	p := &pipeline{deps: deps}
	return graph.New("conversation").
		AddNode("verify", p.nodeVerify).
		AddNode("collect", p.nodeCollect).
		AddNode("prompt", p.nodePrompt).
		AddNode("tools", p.nodeTools).
		AddNode("agent", p.nodeAgent).
		AddNode("tools_exec", p.nodeToolExec).
		AddNode("finish", p.nodeFinish).
		Compile()
}

// redialogPrompt asks for exactly one short question that restarts a
// conversation that went quiet.
const redialogPrompt = `Ты — %s, администратор салона «%s».
Клиент давно не отвечал. Напиши ОДНО короткое дружелюбное сообщение,
чтобы вернуть клиента в диалог. Без приветствия, если диалог уже шёл.`

// RedialogGraph builds the re-engagement pipeline: a single cheap model
// call over the stored history, producing one follow-up question. It never
// calls tools and never advances the dialog state.
func RedialogGraph(deps graph.Deps) (*graph.CompiledGraph, error) {
	p := &pipeline{deps: deps}

	generate := func(ctx context.Context, st *graph.State) (string, error) {
		system := fmt.Sprintf(redialogPrompt, st.Persona.Name, st.Channel.Title)
		req := llm.CompletionRequest{
			Messages:    append([]domain.Message{domain.System(system)}, st.Messages...),
			Temperature: deps.Models.Temperature,
		}
		resp, err := deps.Models.Mini.Complete(ctx, req)
		if err != nil {
			return "", fmt.Errorf("redialog completion: %w", err)
		}
		st.Usage.Add(llm.UsageOrEstimate(resp, req))
		st.Reply = resp.Content

		if err := deps.Store.Append(ctx, st.ChannelID, st.ChatID, domain.Assistant(st.Reply)); err != nil {
			return "", fmt.Errorf("storing redialog message: %w", err)
		}
		return graph.End, nil
	}

	collect := func(ctx context.Context, st *graph.State) (string, error) {
		msgs, err := deps.Store.History(ctx, st.ChannelID, st.ChatID, historyLimit)
		if err != nil {
			return "", fmt.Errorf("loading history: %w", err)
		}
		st.Messages = msgs
		return "generate", nil
	}

	// Re-engagement is initiated by us, not the client, so there is no
	// stop-word handling here. Only the channel context is loaded.
	verify := func(ctx context.Context, st *graph.State) (string, error) {
		st.UserMessage = ""
		if _, err := p.nodeVerify(ctx, st); err != nil {
			return "", err
		}
		return "collect", nil
	}

	return graph.New("redialog").
		AddNode("verify", verify).
		AddNode("collect", collect).
		AddNode("generate", generate).
		Compile()
}

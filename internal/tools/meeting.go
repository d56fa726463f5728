// ABOUTME: Composite setup_meeting_board workflow as an ordered list of steps
// ABOUTME: Steps run one at a time and the first failure stops the run without rollback

package tools

import (
	"context"
	"fmt"

	"github.com/j4jefferson/miro-mcp-server/internal/miro"
)

// Meeting board layout: a 2x2 grid of frames plus one centered below.
const (
	meetingFrameWidth  = 800
	meetingFrameHeight = 600
	meetingSpacing     = 100

	meetingBoardDescription = "Collaborative preparation workspace for productive stakeholder discussions"
	participantColor        = "purple"
)

type meetingSection struct {
	title string
	col   float64
	row   float64
	note  string
	color string
}

var meetingSections = []meetingSection{
	{title: "🎯 Meeting Objectives", col: 0, row: 0, color: "blue",
		note: "Define 2-3 clear outcomes we want from this meeting"},
	{title: "👥 Stakeholder Perspectives", col: 1, row: 0, color: "green",
		note: "Map concerns, pressures, and success metrics for each stakeholder"},
	{title: "💡 Value Propositions", col: 0, row: 1, color: "yellow",
		note: "Focus on benefits for THEM, not solving our problems"},
	{title: "❓ Question Strategy", col: 1, row: 1, color: "pink",
		note: "Prepare open-ended questions that invite sharing first"},
	{title: "🗣️ Conversation Flow", col: 0.5, row: 2, color: "orange",
		note: "Plan a listening-first approach: understand → empathize → suggest"},
}

func (s meetingSection) origin() (float64, float64) {
	return s.col * (meetingFrameWidth + meetingSpacing), s.row * (meetingFrameHeight + meetingSpacing)
}

// meetingRun carries state between steps.
type meetingRun struct {
	api   BoardAPI
	board *miro.Board
}

type meetingStep struct {
	name string
	run  func(ctx context.Context, m *meetingRun) error
}

// meetingPlan returns the ordered steps that build a preparation board.
func meetingPlan(title string, participants []string) []meetingStep {
	steps := make([]meetingStep, 0, 1+2*len(meetingSections)+len(participants))

	steps = append(steps, meetingStep{
		name: "create board",
		run: func(ctx context.Context, m *meetingRun) error {
			board, err := m.api.CreateBoard(ctx, title+" - Preparation Board", meetingBoardDescription)
			if err != nil {
				return err
			}
			m.board = board
			return nil
		},
	})

	for _, section := range meetingSections {
		x, y := section.origin()
		steps = append(steps, meetingStep{
			name: "create frame " + section.title,
			run: func(ctx context.Context, m *meetingRun) error {
				_, err := m.api.CreateFrame(ctx, m.board.ID, miro.Frame{
					Title:  section.title,
					X:      x,
					Y:      y,
					Width:  meetingFrameWidth,
					Height: meetingFrameHeight,
				})
				return err
			},
		})
	}

	for _, section := range meetingSections {
		x, y := section.origin()
		note := miro.StickyNote{Content: section.note, X: x + 50, Y: y + 100, Color: section.color}
		steps = append(steps, stickyStep("create guidance note "+section.color, note))
	}

	for i, p := range participants {
		note := miro.StickyNote{
			Content: "👤 " + p,
			X:       meetingFrameWidth + meetingSpacing + 50,
			Y:       200 + 80*float64(i),
			Color:   participantColor,
		}
		steps = append(steps, stickyStep(fmt.Sprintf("create participant note %d", i+1), note))
	}

	return steps
}

func stickyStep(name string, note miro.StickyNote) meetingStep {
	return meetingStep{
		name: name,
		run: func(ctx context.Context, m *meetingRun) error {
			_, err := m.api.CreateStickyNote(ctx, m.board.ID, note)
			return err
		},
	}
}

// runMeetingPlan executes steps in order and stops at the first failure.
func (e *Engine) runMeetingPlan(ctx context.Context, steps []meetingStep) (*miro.Board, error) {
	m := &meetingRun{api: e.api}
	for i, step := range steps {
		if err := step.run(ctx, m); err != nil {
			e.logger.Warn("meeting board step failed",
				"step", step.name,
				"completed", i,
				"total", len(steps),
				"error", err,
			)
			return nil, err
		}
	}
	return m.board, nil
}

func (e *Engine) setupMeetingBoard(ctx context.Context, args map[string]any) (string, error) {
	title, err := stringArg(args, "meeting_title")
	if err != nil {
		return "", err
	}

	board, err := e.runMeetingPlan(ctx, meetingPlan(title, stringListArg(args, "participants")))
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("🎯 Meeting preparation board created!\n\nBoard: %s\nID: %s\nURL: %s\n\n"+
		"The board includes:\n"+
		"• Stakeholder perspective mapping\n"+
		"• Value proposition development\n"+
		"• Question strategy planning\n"+
		"• Conversation flow design",
		quote(board.Name), board.ID, board.ViewLink), nil
}

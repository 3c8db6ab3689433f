// Package mcp provides an MCP (Model Context Protocol) server that exposes
// plan operations as MCP tools for AI coding assistants.
package mcp

import (
	"context"
	"fmt"
	"strings"

	gomcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/valter-silva-au/repokit/internal/core"
	"github.com/valter-silva-au/repokit/pkg/models"
)

// Server wraps the plan manager and exposes it as MCP tools.
type Server struct {
	server *gomcp.Server
	plan   core.PlanManager
}

// NewServer creates an MCP server over the given plan manager.
func NewServer(plan core.PlanManager, version string) *Server {
	if version == "" {
		version = "dev"
	}

	s := &Server{plan: plan}
	s.server = gomcp.NewServer(
		&gomcp.Implementation{Name: "repokit", Version: version},
		nil,
	)
	s.registerTools()
	return s
}

// Run starts the MCP server on stdio, blocking until the client disconnects
// or the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &gomcp.StdioTransport{})
}

// MCPServer returns the underlying mcp.Server for testing purposes.
func (s *Server) MCPServer() *gomcp.Server {
	return s.server
}

// --- Tool input/output types ---

type getTaskInput struct {
	TaskID string `json:"task_id" jsonschema:"required,the four-digit task identifier (e.g. 0001)"`
}

type taskOutput struct {
	ID       string `json:"id"`
	Kind     string `json:"kind,omitempty"`
	Title    string `json:"title,omitempty"`
	Status   string `json:"status"`
	Assignee string `json:"assignee,omitempty"`
	TaskFile string `json:"task_file,omitempty"`
}

type listTasksInput struct {
	Status string `json:"status,omitempty" jsonschema:"filter tasks by status (pending_review, queued, working, testing, under_acceptance, finished)"`
}

type listTasksOutput struct {
	Tasks []taskOutput `json:"tasks"`
	Count int          `json:"count"`
}

type logEventInput struct {
	TaskID  string `json:"task_id" jsonschema:"required,the task to log against"`
	Message string `json:"message" jsonschema:"required,the history entry body"`
	Author  string `json:"author,omitempty" jsonschema:"author recorded in the history entry"`
}

type logEventOutput struct {
	Message string `json:"message"`
}

type transitionTaskInput struct {
	TaskID     string `json:"task_id" jsonschema:"required,the task to transition"`
	Transition string `json:"transition" jsonschema:"required,one of review_accept, start, test, accept, finish, reopen"`
	Message    string `json:"message,omitempty" jsonschema:"history entry body recorded with the transition"`
	Author     string `json:"author,omitempty"`
}

type transitionTaskOutput struct {
	Message string `json:"message"`
	Status  string `json:"status"`
}

// --- Tool registration ---

func (s *Server) registerTools() {
	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "get_task",
		Description: "Get a plan task by ID. Returns id, kind, title, status, assignee, and the content document path.",
	}, s.handleGetTask)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "list_tasks",
		Description: "List plan tasks with an optional status filter, in manifest order.",
	}, s.handleListTasks)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "log_event",
		Description: "Append a history entry to a task without changing its status.",
	}, s.handleLogEvent)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "transition_task",
		Description: "Run one lifecycle transition (review_accept, start, test, accept, finish, reopen) with its checks and hooks.",
	}, s.handleTransitionTask)
}

// --- Tool handlers ---

func (s *Server) handleGetTask(_ context.Context, _ *gomcp.CallToolRequest, input getTaskInput) (*gomcp.CallToolResult, taskOutput, error) {
	if input.TaskID == "" {
		return errorResult("task_id is required"), taskOutput{}, nil
	}
	task, err := s.plan.GetTask(input.TaskID)
	if err != nil {
		return errorResult(fmt.Sprintf("getting task %s: %s", input.TaskID, err)), taskOutput{}, nil
	}
	return nil, taskToOutput(task), nil
}

func (s *Server) handleListTasks(_ context.Context, _ *gomcp.CallToolRequest, input listTasksInput) (*gomcp.CallToolResult, listTasksOutput, error) {
	var status models.TaskStatus
	if input.Status != "" {
		st, err := models.ParseStatus(input.Status)
		if err != nil {
			return errorResult(err.Error()), listTasksOutput{}, nil
		}
		status = st
	}

	tasks, err := s.plan.ListTasks(status)
	if err != nil {
		return errorResult(fmt.Sprintf("listing tasks: %s", err)), listTasksOutput{}, nil
	}

	out := listTasksOutput{
		Tasks: make([]taskOutput, len(tasks)),
		Count: len(tasks),
	}
	for i := range tasks {
		out.Tasks[i] = taskToOutput(&tasks[i])
	}
	return nil, out, nil
}

func (s *Server) handleLogEvent(_ context.Context, _ *gomcp.CallToolRequest, input logEventInput) (*gomcp.CallToolResult, logEventOutput, error) {
	if input.TaskID == "" {
		return errorResult("task_id is required"), logEventOutput{}, nil
	}
	if strings.TrimSpace(input.Message) == "" {
		return errorResult("message is required"), logEventOutput{}, nil
	}
	if err := s.plan.Log(input.TaskID, input.Author, input.Message); err != nil {
		return errorResult(fmt.Sprintf("logging to task %s: %s", input.TaskID, err)), logEventOutput{}, nil
	}
	return nil, logEventOutput{Message: fmt.Sprintf("logged entry for task %s", input.TaskID)}, nil
}

func (s *Server) handleTransitionTask(_ context.Context, _ *gomcp.CallToolRequest, input transitionTaskInput) (*gomcp.CallToolResult, transitionTaskOutput, error) {
	if input.TaskID == "" {
		return errorResult("task_id is required"), transitionTaskOutput{}, nil
	}
	tr, err := core.TransitionByName(input.Transition)
	if err != nil {
		return errorResult(err.Error()), transitionTaskOutput{}, nil
	}

	opts := core.TransitionOptions{Message: input.Message, Author: input.Author}
	if err := s.plan.Transition(input.TaskID, tr, opts); err != nil {
		return errorResult(fmt.Sprintf("transitioning task %s: %s", input.TaskID, err)), transitionTaskOutput{}, nil
	}

	out := transitionTaskOutput{
		Message: fmt.Sprintf("task %s transitioned via %s", input.TaskID, tr.Name),
		Status:  string(tr.To),
	}
	return nil, out, nil
}

// --- Helpers ---

func taskToOutput(t *models.Task) taskOutput {
	return taskOutput{
		ID:       t.ID,
		Kind:     string(t.Kind),
		Title:    t.Title,
		Status:   string(t.Status),
		Assignee: t.Assignee,
		TaskFile: t.TaskFile,
	}
}

func errorResult(msg string) *gomcp.CallToolResult {
	return &gomcp.CallToolResult{
		Content: []gomcp.Content{&gomcp.TextContent{Text: msg}},
		IsError: true,
	}
}

package dto

// LengthRange bounds the generated string length. Pointers distinguish an
// explicit 0 from a missing bound.
type LengthRange struct {
	Min *int `json:"min" binding:"required"`
	Max *int `json:"max" binding:"required"`
}

// PublishRequest is the body of POST /parameters/ and POST /api/v1/messages.
// The process tag is accepted under either key.
type PublishRequest struct {
	QueueName   string      `json:"queue_name" binding:"required"`
	ProcessTag  string      `json:"process_tag"`
	ProcessName string      `json:"process_name"`
	Range       LengthRange `json:"range"`
}

// Tag returns process_tag, falling back to process_name
func (r *PublishRequest) Tag() string {
	if r.ProcessTag != "" {
		return r.ProcessTag
	}
	return r.ProcessName
}

// StartPeriodicRequest is the body of POST /api/v1/periodic
type StartPeriodicRequest struct {
	PublishRequest
	Interval string `json:"interval"`
}

type MessageDTO struct {
	MessageID    string `json:"message_id,omitempty"`
	QueueName    string `json:"queue_name"`
	ProcessName  string `json:"process_name"`
	RandomString string `json:"random_string"`
	CreatedAt    string `json:"created_at"`
	RecordedAt   string `json:"recorded_at,omitempty"`
}

type PublishResponse struct {
	Status  string     `json:"status"`
	Message MessageDTO `json:"message"`
}

type ListMessagesRequest struct {
	QueueName   string `form:"queue_name"`
	ProcessName string `form:"process_name"`
	PageSize    int    `form:"page_size"`
	Cursor      string `form:"cursor"`
}

type ListMessagesResponse struct {
	Messages   []MessageDTO `json:"messages"`
	NextCursor string       `json:"next_cursor,omitempty"`
}

type TaskDTO struct {
	TaskID          string `json:"task_id"`
	Status          string `json:"status"`
	QueueName       string `json:"queue_name"`
	ProcessName     string `json:"process_name"`
	MinLength       int    `json:"min_length"`
	MaxLength       int    `json:"max_length"`
	Interval        string `json:"interval"`
	StartedAt       string `json:"started_at"`
	Published       int    `json:"published"`
	LastPublishedAt string `json:"last_published_at,omitempty"`
	Error           string `json:"error,omitempty"`
}

type PeriodicResponse struct {
	Status string   `json:"status"`
	Task   *TaskDTO `json:"task,omitempty"`
}

type HealthResponse struct {
	Status   string `json:"status"`
	Service  string `json:"service"`
	RabbitMQ string `json:"rabbitmq"`
	Periodic bool   `json:"periodic_running"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

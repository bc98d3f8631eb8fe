package transcode

// JobType is the queue job type consumed by the transcode worker.
const JobType = "transcode:image"

// Payload is the job payload enqueued after an upload is accepted. It
// carries only identifiers; the worker re-reads everything else from
// the image record so redeliveries observe current state.
type Payload struct {
	ImageID   string `json:"image_id"`
	ObjectKey string `json:"object_key"`
}

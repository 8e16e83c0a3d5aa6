package models

import (
	"time"
)

// AudioFile represents an uploaded audio file owned by a user
type AudioFile struct {
	ID          int64     `json:"id" db:"id"`
	Filename    string    `json:"filename" db:"filename"` // Name given by the user
	Filepath    string    `json:"filepath" db:"filepath"` // Location on the server
	ContentType string    `json:"content_type" db:"content_type"`
	SizeBytes   int64     `json:"size_bytes" db:"size_bytes"`
	OwnerID     int64     `json:"owner_id" db:"owner_id"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// TableName returns the table name for the AudioFile model
func (AudioFile) TableName() string {
	return "audio_files"
}

// NewAudioFile creates a new AudioFile instance
func NewAudioFile(ownerID int64, filename, filepath, contentType string, size int64) *AudioFile {
	return &AudioFile{
		Filename:    filename,
		Filepath:    filepath,
		ContentType: contentType,
		SizeBytes:   size,
		OwnerID:     ownerID,
		CreatedAt:   time.Now(),
	}
}

// AudioFileInfo is the listing view of an AudioFile
type AudioFileInfo struct {
	ID        int64     `json:"id"`
	Filename  string    `json:"filename"`
	Filepath  string    `json:"filepath"`
	CreatedAt time.Time `json:"created_at"`
}

// Info returns the listing view of the file
func (a *AudioFile) Info() AudioFileInfo {
	return AudioFileInfo{
		ID:        a.ID,
		Filename:  a.Filename,
		Filepath:  a.Filepath,
		CreatedAt: a.CreatedAt,
	}
}

package server

import (
	"fmt"
	"net/http"
	"path/filepath"

	"github.com/gin-gonic/gin"

	"fandom-explainer/types"
)

type scriptRequest struct {
	ConceptSubtopic string `json:"concept_subtopic" binding:"required"`
	Fandom          string `json:"fandom" binding:"required"`
}

type voiceoverRequest struct {
	Script  *types.ScriptPlan `json:"script" binding:"required"`
	VoiceID string            `json:"voice_id"`
}

type videoRequest struct {
	VoiceoverData *types.Voiceover `json:"voiceover_data" binding:"required"`
}

type jobRequest struct {
	Concept string `json:"concept" binding:"required"`
	Fandom  string `json:"fandom" binding:"required"`
}

func (s *Server) bind(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		s.fail(c, fmt.Errorf("%w: %v", types.ErrInvalidInput, err))
		return false
	}
	return true
}

func (s *Server) handleSubtopics(c *gin.Context) {
	subs, err := s.stages.Subtopics(c.Request.Context(), c.Query("concept"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"subtopics": subs})
}

func (s *Server) handleScript(c *gin.Context) {
	var req scriptRequest
	if !s.bind(c, &req) {
		return
	}
	plan, err := s.stages.Script(c.Request.Context(), req.ConceptSubtopic, req.Fandom)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, plan)
}

func (s *Server) handleVoiceover(c *gin.Context) {
	var req voiceoverRequest
	if !s.bind(c, &req) {
		return
	}
	vo, err := s.stages.Voiceover(c.Request.Context(), req.Script, req.VoiceID)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"audio_file": vo.AudioPath, "voiceover_data": vo})
}

func (s *Server) handleVideo(c *gin.Context) {
	var req videoRequest
	if !s.bind(c, &req) {
		return
	}
	res, err := s.stages.Video(c.Request.Context(), req.VoiceoverData)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"video_path": res.VideoPath, "video_data": res})
}

// handleDownloadVideo answers 202 while the compositor's .temp file is
// still being written and 204 for an empty result.
func (s *Server) handleDownloadVideo(c *gin.Context) {
	name := c.Param("filename")
	if !safeName(name) {
		s.fail(c, fmt.Errorf("%w: invalid file name %q", types.ErrInvalidInput, name))
		return
	}
	path := filepath.Join(s.cfg.Paths.Video, name)

	size, ok := fileSize(path)
	if !ok {
		if _, writing := fileSize(path + ".temp"); writing {
			c.JSON(http.StatusAccepted, gin.H{"detail": "Video is still being generated. Please try again in a few seconds."})
			return
		}
		s.fail(c, fmt.Errorf("%w: video file %s not found", types.ErrMediaNotFound, name))
		return
	}
	if size == 0 {
		s.logger.Warn().Str("file", name).Msg("video file exists but is empty")
		c.Status(http.StatusNoContent)
		return
	}
	c.Header("Content-Type", "video/mp4")
	c.FileAttachment(path, name)
}

func (s *Server) handleDownloadAudio(c *gin.Context) {
	name := c.Param("filename")
	if !safeName(name) {
		s.fail(c, fmt.Errorf("%w: invalid file name %q", types.ErrInvalidInput, name))
		return
	}
	path := filepath.Join(s.cfg.Paths.Audio, name)
	if _, ok := fileSize(path); !ok {
		s.fail(c, fmt.Errorf("%w: audio file %s not found", types.ErrMediaNotFound, name))
		return
	}
	c.Header("Content-Type", "audio/mpeg")
	c.FileAttachment(path, name)
}

func (s *Server) handleEnqueue(c *gin.Context) {
	if s.jobs == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"detail": "job queue is not configured"})
		return
	}
	var req jobRequest
	if !s.bind(c, &req) {
		return
	}
	job, err := s.jobs.Enqueue(c.Request.Context(), req.Concept, req.Fandom)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusAccepted, job)
}

func (s *Server) handleJob(c *gin.Context) {
	if s.jobs == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"detail": "job queue is not configured"})
		return
	}
	job, err := s.jobs.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, job)
}

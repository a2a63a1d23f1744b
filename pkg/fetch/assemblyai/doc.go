// Package assemblyai is a client for the AssemblyAI transcription API.
//
// Audio is uploaded or referenced by URL, submitted for transcription, and
// polled until the transcript reaches a terminal status. Transcribe runs
// the submit-and-wait pipeline in one call:
//
//	aai, err := assemblyai.New(assemblyai.Config{APIKey: key})
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer aai.Close()
//
//	t, err := aai.Transcribe(ctx, audioURL)
//	if err != nil {
//		log.Fatal(err)
//	}
//	fmt.Println(t.Text)
//
// Requests run through an adaptive rate limiter, so API throttling during
// long polling loops backs off instead of hammering the endpoint.
package assemblyai

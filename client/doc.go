// Package client implements the deskflow collaborator interfaces over the
// research-desk backend's REST and streaming HTTP surface. One Client serves
// every interface: desk reads, stage actions, chat management, document
// persistence and streamed turn submission. Non-2xx responses surface as
// *APIError carrying the backend's detail message.
package client
